package services

import (
	"context"
	"sync"
	"time"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
	"stackwarden/internal/probe"
)

// LivenessChecker reports whether a service's process still exists. A
// controller that can answer cheaply lets the engine fail a probe at once
// instead of waiting out a network timeout against a dead process.
type LivenessChecker interface {
	Alive(id string) bool
}

// HealthEngine runs one polling loop per started service. Each loop is the
// sole writer of its service's probe bookkeeping; everything else reads
// snapshots or sends commands.
type HealthEngine struct {
	reg      *Registry
	state    *StateTable
	prober   probe.Prober
	liveness LivenessChecker
	publish  func(models.TransitionEvent)

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu       sync.Mutex
	monitors map[string]*monitor
}

type monitor struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthEngine builds the engine. liveness may be nil when the
// controller cannot report process existence.
func NewHealthEngine(reg *Registry, state *StateTable, prober probe.Prober,
	liveness LivenessChecker, publish func(models.TransitionEvent)) *HealthEngine {
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthEngine{
		reg:        reg,
		state:      state,
		prober:     prober,
		liveness:   liveness,
		publish:    publish,
		baseCtx:    ctx,
		baseCancel: cancel,
		monitors:   make(map[string]*monitor),
	}
}

/**
 * StartMonitor begins polling a service that has just been launched
 * @param {string} id - Service id, must exist in the registry
 * @description
 * - No-op when a monitor for the id is already running
 * - The grace window is measured from this call
 */
func (e *HealthEngine) StartMonitor(id string) {
	spec, ok := e.reg.Get(id)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, running := e.monitors[id]; running {
		return
	}

	ctx, cancel := context.WithCancel(e.baseCtx)
	m := &monitor{cancel: cancel, done: make(chan struct{})}
	e.monitors[id] = m

	go func() {
		defer close(m.done)
		e.poll(ctx, spec)
	}()
}

// StopMonitor cancels a service's polling loop and waits for it to exit.
// Any in-flight probe is aborted through its own timeout-bounded context.
func (e *HealthEngine) StopMonitor(id string) {
	e.mu.Lock()
	m, ok := e.monitors[id]
	if ok {
		delete(e.monitors, id)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	m.cancel()
	<-m.done
}

// StopAll cancels every polling loop.
func (e *HealthEngine) StopAll() {
	e.baseCancel()
	e.mu.Lock()
	monitors := e.monitors
	e.monitors = make(map[string]*monitor)
	e.mu.Unlock()
	for _, m := range monitors {
		<-m.done
	}
}

func (e *HealthEngine) poll(ctx context.Context, spec models.ServiceSpec) {
	started := time.Now()
	ticker := time.NewTicker(spec.Probe.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runProbe(ctx, spec, started)
		}
	}
}

/**
 * runProbe executes one probe and applies its outcome to the state machine
 * @description
 * - A process known to be gone fails the probe immediately, without
 *   spending the probe timeout on a dead target
 * - The probe is bounded by the configured timeout; hitting the deadline is a
 *   failure, never a pending result
 * - Failures inside the start period are recorded but not counted
 * - Reaching the failure threshold fires the unhealthy transition; a
 *   success from unhealthy recovers without a restart
 * - Only transitions are published, not individual probe results
 */
func (e *HealthEngine) runProbe(ctx context.Context, spec models.ServiceSpec, started time.Time) {
	var ok bool
	var output string
	if e.liveness != nil && !e.liveness.Alive(spec.ID) {
		output = "process not running"
	} else {
		pctx, cancel := context.WithTimeout(ctx, spec.Probe.Timeout)
		var err error
		ok, output, err = e.prober.Check(pctx, spec.Probe)
		cancel()
		if err != nil {
			ok = false
			if output == "" {
				output = err.Error()
			}
		}
	}

	RecordProbe(spec.ID, ok)
	counted := time.Since(started) >= spec.Probe.StartPeriod
	threshold := spec.FailureThreshold()

	if ok {
		e.state.RecordProbe(spec.ID, true, output, counted, threshold)
		if ev, changed := e.state.Fire(spec.ID, eventProbeHealthy, output); changed {
			logger.Infof("service [%s] is healthy", spec.ID)
			e.publish(ev)
		}
		return
	}

	failures := e.state.RecordProbe(spec.ID, false, output, counted, threshold)
	if !counted {
		logger.Debugf("service [%s] probe failed during start period: %s", spec.ID, output)
		return
	}
	if failures >= threshold {
		if ev, changed := e.state.Fire(spec.ID, eventProbeUnhealthy, output); changed {
			logger.Warnf("service [%s] is unhealthy after %d consecutive failures: %s",
				spec.ID, failures, output)
			e.publish(ev)
		}
	}
}
