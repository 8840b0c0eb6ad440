package services

import (
	"context"
	"sync"
	"time"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
	"stackwarden/internal/probe"
	"stackwarden/internal/proc"
)

// Options carries the injected collaborators of a supervisor. Prober and
// Controller have production defaults; tests swap in scripted fakes.
type Options struct {
	Prober      probe.Prober
	Controller  proc.Controller
	AlertWindow time.Duration
	Sinks       []Sink
}

// Supervisor wires the registry, resolver, health engine, sequencer, restart
// policy and notifier together and owns the runtime state of the stack.
// All state lives on the instance; there are no package-level singletons.
type Supervisor struct {
	reg      *Registry
	layers   [][]string
	state    *StateTable
	engine   *HealthEngine
	seq      *Sequencer
	policy   *Policy
	notifier *Notifier

	events     chan models.TransitionEvent
	pumpOnce   sync.Once
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}

	startedAt time.Time
}

/**
 * New validates the declarations and assembles a supervisor
 * @param {[]models.ServiceSpec} specs - Service declarations from configuration
 * @param {Options} opts - Injected collaborators and tuning
 * @returns {(*Supervisor, error)} Assembled supervisor, or a configuration error
 * @description
 * - Registry validation and cycle detection run here: a bad configuration
 *   refuses to start instead of failing at runtime
 */
func New(specs []models.ServiceSpec, opts Options) (*Supervisor, error) {
	reg, err := LoadRegistry(specs)
	if err != nil {
		return nil, err
	}
	layers, err := Resolve(reg)
	if err != nil {
		return nil, err
	}

	if opts.Prober == nil {
		opts.Prober = probe.Default()
	}
	if opts.Controller == nil {
		opts.Controller = proc.NewExecController()
	}
	if opts.AlertWindow <= 0 {
		opts.AlertWindow = 5 * time.Minute
	}
	if len(opts.Sinks) == 0 {
		opts.Sinks = []Sink{LogSink{}}
	}

	s := &Supervisor{
		reg:      reg,
		layers:   layers,
		state:    NewStateTable(reg.IDs()),
		notifier: NewNotifier(opts.AlertWindow, opts.Sinks...),
		events:   make(chan models.TransitionEvent, 256),
		pumpDone: make(chan struct{}),
	}
	var liveness LivenessChecker
	if lc, ok := opts.Controller.(LivenessChecker); ok {
		liveness = lc
	}
	s.engine = NewHealthEngine(reg, s.state, opts.Prober, liveness, s.publishEvent)
	s.seq = NewSequencer(reg, s.state, s.engine, opts.Controller, s.publishEvent)
	s.policy = NewPolicy(reg, s.state, s.seq, s.notifier, s.publishEvent)
	return s, nil
}

// publishEvent hands a transition to the event pump. It never blocks: the
// pump could itself be the caller, so a full buffer drops with a warning
// rather than deadlocking.
func (s *Supervisor) publishEvent(ev models.TransitionEvent) {
	select {
	case s.events <- ev:
	default:
		logger.Warnf("event buffer full, dropping transition %s -> %s for service [%s]",
			ev.From, ev.To, ev.Service)
	}
}

/**
 * Start brings the whole stack up in dependency order
 * @param {context.Context} ctx - Bounds the startup sequence
 * @returns {error} StartupTimeoutError naming the blocking service, or nil
 * @description
 * - A failed layer aborts the call but earlier layers keep running and
 *   reporting state, so a partial stack stays debuggable
 */
func (s *Supervisor) Start(ctx context.Context) error {
	s.pumpOnce.Do(func() {
		pumpCtx, cancel := context.WithCancel(context.Background())
		s.pumpCancel = cancel
		go s.pump(pumpCtx)
	})
	s.startedAt = time.Now()
	logger.Infof("starting %d services in %d layers", s.reg.Len(), len(s.layers))
	return s.seq.Start(ctx, s.layers)
}

/**
 * Stop shuts the stack down in reverse dependency order
 * @param {context.Context} ctx - Hard deadline; expiry force-terminates stragglers
 */
func (s *Supervisor) Stop(ctx context.Context) {
	logger.Infof("stopping all services")
	s.seq.Stop(ctx, s.layers)
	s.engine.StopAll()
	if s.pumpCancel != nil {
		s.pumpCancel()
		<-s.pumpDone
	}
	s.notifier.Close()
}

func (s *Supervisor) pump(ctx context.Context) {
	defer close(s.pumpDone)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			RecordTransition(ev)
			if ev.To == models.StateUnhealthy {
				s.notifier.Notify(ev.Service, models.SeverityWarning, "service unhealthy", ev.Output)
			}
			s.policy.HandleTransition(ctx, ev)
		}
	}
}

// Snapshot returns a point-in-time copy of every service's runtime record.
func (s *Supervisor) Snapshot() map[string]models.ServiceRuntime {
	return s.state.Snapshot()
}

// Service returns the runtime record of one service.
func (s *Supervisor) Service(id string) (models.ServiceRuntime, error) {
	rt, ok := s.state.Get(id)
	if !ok {
		return models.ServiceRuntime{}, models.ErrServiceNotFound
	}
	return rt, nil
}

// Specs exposes the immutable declarations, for listings.
func (s *Supervisor) Specs() []models.ServiceSpec {
	return s.reg.Specs()
}

// Layers exposes the computed start order, for diagnostics.
func (s *Supervisor) Layers() [][]string {
	out := make([][]string, len(s.layers))
	for i, l := range s.layers {
		out[i] = append([]string(nil), l...)
	}
	return out
}

// Alerts returns the recent alert history.
func (s *Supervisor) Alerts() []models.Alert {
	return s.notifier.Alerts()
}

// Reset is the operator action recovering a service from persistent failure.
func (s *Supervisor) Reset(id string) error {
	return s.policy.Reset(id)
}

// StartService starts one stopped service, enforcing the dependency gate.
func (s *Supervisor) StartService(ctx context.Context, id string) error {
	return s.seq.StartOne(ctx, id)
}

// StopService stops one running service.
func (s *Supervisor) StopService(ctx context.Context, id string) error {
	return s.seq.StopOne(ctx, id)
}

// RestartService stops and starts one service on operator request.
func (s *Supervisor) RestartService(ctx context.Context, id string) error {
	if _, ok := s.reg.Get(id); !ok {
		return models.ErrServiceNotFound
	}
	if err := s.seq.StopOne(ctx, id); err != nil {
		return err
	}
	return s.seq.StartOne(ctx, id)
}

// Healthz reports the daemon's own condition and a per-state service tally.
func (s *Supervisor) Healthz(version string) models.HealthResponse {
	counts := s.state.CountByState()
	status := "ok"
	if counts[models.StatePersistentFailure] > 0 {
		status = "degraded"
	}
	started := s.startedAt
	if started.IsZero() {
		started = time.Now()
	}
	return models.HealthResponse{
		Status:        status,
		Version:       version,
		StartTime:     started.Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(started).Seconds()),
		Services:      counts,
	}
}
