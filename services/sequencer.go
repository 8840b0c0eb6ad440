package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
	"stackwarden/internal/proc"
)

// healthPollTick is how often the sequencer re-reads service state while
// waiting for a layer to become healthy.
const healthPollTick = 25 * time.Millisecond

// Sequencer drives services through start and stop transitions, respecting
// the dependency layers and the health gate on every start.
type Sequencer struct {
	reg     *Registry
	state   *StateTable
	engine  *HealthEngine
	ctrl    proc.Controller
	publish func(models.TransitionEvent)
}

func NewSequencer(reg *Registry, state *StateTable, engine *HealthEngine,
	ctrl proc.Controller, publish func(models.TransitionEvent)) *Sequencer {
	return &Sequencer{reg: reg, state: state, engine: engine, ctrl: ctrl, publish: publish}
}

/**
 * Start brings up all layers in dependency order
 * @param {context.Context} ctx - Bounds the whole startup sequence
 * @param {[][]string} layers - Resolver output
 * @returns {error} StartupTimeoutError naming the blocking service, or ctx error
 * @description
 * - Members of one layer launch concurrently; the next layer is not touched
 *   until every member of the current one is healthy
 * - A layer failure aborts the sequence but leaves already-started layers
 *   running, so a partial stack stays debuggable
 */
func (s *Sequencer) Start(ctx context.Context, layers [][]string) error {
	for _, layer := range layers {
		for _, id := range layer {
			s.launch(ctx, id)
		}
		if err := s.awaitLayer(ctx, layer); err != nil {
			return err
		}
	}
	return nil
}

// launch starts a single service's process and its health monitor. Controller
// failures are logged and absorbed: the service simply never becomes healthy
// and the layer wait reports it.
func (s *Sequencer) launch(ctx context.Context, id string) {
	spec, ok := s.reg.Get(id)
	if !ok {
		return
	}
	switch s.state.StateOf(id) {
	case models.StatePending, models.StateStopped:
	default:
		return
	}

	if err := s.ctrl.Start(ctx, spec); err != nil {
		logger.Errorf("service [%s] launch failed: %v", id, err)
	}
	s.state.SetStarted(id, time.Now())
	if ev, changed := s.state.Fire(id, eventLaunch, ""); changed {
		logger.Infof("service [%s] starting", id)
		s.publish(ev)
	}
	s.engine.StartMonitor(id)
}

func (s *Sequencer) awaitLayer(ctx context.Context, layer []string) error {
	errs := make([]error, len(layer))
	var wg sync.WaitGroup
	for i, id := range layer {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = s.awaitHealthy(ctx, id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) awaitHealthy(ctx context.Context, id string) error {
	spec, _ := s.reg.Get(id)
	deadline := time.NewTimer(spec.StartupTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(healthPollTick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			rt, _ := s.state.Get(id)
			return &models.StartupTimeoutError{Service: id, LastOutput: rt.LastCheckOutput}
		case <-tick.C:
			if s.state.StateOf(id) == models.StateHealthy {
				return nil
			}
		}
	}
}

/**
 * Stop shuts the stack down in reverse dependency order
 * @description
 * - Later layers stop before earlier ones; members of one layer stop
 *   concurrently
 * - Each service gets its grace period before a forced terminate
 */
func (s *Sequencer) Stop(ctx context.Context, layers [][]string) {
	for i := len(layers) - 1; i >= 0; i-- {
		var wg sync.WaitGroup
		for _, id := range layers[i] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				s.stopService(ctx, id)
			}(id)
		}
		wg.Wait()
	}
}

func (s *Sequencer) stopService(ctx context.Context, id string) {
	spec, ok := s.reg.Get(id)
	if !ok {
		return
	}
	s.engine.StopMonitor(id)
	if ev, changed := s.state.Fire(id, eventStop, ""); changed {
		logger.Infof("service [%s] stopping", id)
		s.publish(ev)
	}
	if err := s.ctrl.Stop(ctx, id, spec.StopGrace); err != nil {
		logger.Errorf("service [%s] graceful stop failed: %v", id, err)
		if err := s.ctrl.ForceKill(id); err != nil {
			logger.Errorf("service [%s] force kill failed: %v", id, err)
		}
	}
}

// Restart replaces a single service's process without touching its healthy
// dependents. Called by the restart policy after the service entered the
// restarting state.
func (s *Sequencer) Restart(ctx context.Context, id string) error {
	spec, ok := s.reg.Get(id)
	if !ok {
		return models.ErrServiceNotFound
	}
	s.engine.StopMonitor(id)
	if err := s.ctrl.Stop(ctx, id, spec.StopGrace); err != nil {
		logger.Errorf("service [%s] stop before restart failed: %v", id, err)
		if err := s.ctrl.ForceKill(id); err != nil {
			return err
		}
	}
	if err := s.ctrl.Start(ctx, spec); err != nil {
		return err
	}
	s.state.SetStarted(id, time.Now())
	if ev, changed := s.state.Fire(id, eventLaunch, "restarted"); changed {
		logger.Infof("service [%s] restarted, starting", id)
		s.publish(ev)
	}
	s.engine.StartMonitor(id)
	return nil
}

// StartOne starts a single stopped service on operator request, enforcing the
// same dependency gate as a full stack start.
func (s *Sequencer) StartOne(ctx context.Context, id string) error {
	spec, ok := s.reg.Get(id)
	if !ok {
		return models.ErrServiceNotFound
	}
	switch s.state.StateOf(id) {
	case models.StatePending, models.StateStopped:
	case models.StatePersistentFailure:
		return models.ErrPersistentFailure
	default:
		return models.ErrAlreadyRunning
	}
	for _, dep := range spec.DependsOn {
		if s.state.StateOf(dep) != models.StateHealthy {
			return fmt.Errorf("dependency %q of service %q is not healthy", dep, id)
		}
	}
	s.launch(ctx, id)
	return nil
}

// StopOne stops a single service on operator request.
func (s *Sequencer) StopOne(ctx context.Context, id string) error {
	if _, ok := s.reg.Get(id); !ok {
		return models.ErrServiceNotFound
	}
	s.stopService(ctx, id)
	return nil
}
