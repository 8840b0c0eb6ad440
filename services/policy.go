package services

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
)

// Policy is the restart and failure policy. It consumes unhealthy
// transitions, issues bounded restarts through the sequencer, and escalates
// to a persistent-failure alert once the restart budget is spent.
type Policy struct {
	reg      *Registry
	state    *StateTable
	seq      *Sequencer
	notifier *Notifier
	publish  func(models.TransitionEvent)

	mu       sync.Mutex
	backoffs map[string]*backoff.ExponentialBackOff
	inflight map[string]bool
}

func NewPolicy(reg *Registry, state *StateTable, seq *Sequencer, notifier *Notifier,
	publish func(models.TransitionEvent)) *Policy {
	return &Policy{
		reg:      reg,
		state:    state,
		seq:      seq,
		notifier: notifier,
		publish:  publish,
		backoffs: make(map[string]*backoff.ExponentialBackOff),
		inflight: make(map[string]bool),
	}
}

/**
 * HandleTransition reacts to a state change event
 * @description
 * - A recovery to healthy clears the service's backoff schedule
 * - An unhealthy transition triggers a restart while budget remains,
 *   otherwise the persistent-failure escalation
 * - Restarts run asynchronously so the event pump never blocks on a
 *   backoff delay or a process operation
 */
func (p *Policy) HandleTransition(ctx context.Context, ev models.TransitionEvent) {
	switch ev.To {
	case models.StateHealthy:
		p.resetBackoff(ev.Service)
	case models.StateUnhealthy:
		p.evaluate(ctx, ev)
	}
}

func (p *Policy) evaluate(ctx context.Context, ev models.TransitionEvent) {
	id := ev.Service
	spec, ok := p.reg.Get(id)
	if !ok {
		return
	}
	rt, _ := p.state.Get(id)
	if rt.RestartCount >= spec.Restart.MaxRestartAttempts {
		p.giveUp(id, ev.Output)
		return
	}
	if !p.markInflight(id) {
		return
	}
	go p.runRestart(ctx, spec, ev.Output)
}

/**
 * runRestart performs one bounded restart cycle for a service
 * @description
 * - The first restart after a recovery is immediate; successive ones wait
 *   out the exponential backoff, capped by the configured maximum
 * - A service that recovers on its own during the wait is left alone
 * - A process-control failure counts against the same restart budget and
 *   is retried under backoff rather than propagated
 */
func (p *Policy) runRestart(ctx context.Context, spec models.ServiceSpec, cause string) {
	id := spec.ID
	defer p.clearInflight(id)

	for {
		delay := p.nextDelay(spec)
		if delay > 0 {
			logger.Infof("service [%s] next restart in %v", id, delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		switch p.state.StateOf(id) {
		case models.StateUnhealthy, models.StateRestarting:
		default:
			// recovered, stopped or escalated while we were waiting
			return
		}

		rt, _ := p.state.Get(id)
		if rt.RestartCount >= spec.Restart.MaxRestartAttempts {
			p.giveUp(id, cause)
			return
		}

		proceed, err := p.attemptRestart(ctx, spec, cause)
		if !proceed {
			return
		}
		if err != nil {
			logger.Errorf("service [%s] restart failed: %v", id, err)
			continue
		}
		return
	}
}

/**
 * attemptRestart performs one restart transition and process replacement
 * @returns {(bool, error)} Whether the attempt was applied, and the process-control error if the replacement failed
 * @description
 * - The restart transition fires first; when the state machine rejects it
 *   and the service is not already restarting, the service was stopped or
 *   recovered concurrently and is left alone with its budget untouched
 * - The budget is consumed only by applied attempts
 */
func (p *Policy) attemptRestart(ctx context.Context, spec models.ServiceSpec, cause string) (bool, error) {
	id := spec.ID
	ev, changed := p.state.Fire(id, eventRestart, cause)
	if !changed && p.state.StateOf(id) != models.StateRestarting {
		return false, nil
	}
	count := p.state.IncrementRestart(id)
	if changed {
		p.publish(ev)
	}
	RecordRestart(id)
	logger.Warnf("service [%s] restart attempt %d/%d", id, count, spec.Restart.MaxRestartAttempts)
	p.notifier.Notify(id, models.SeverityWarning, "service restarting", cause)
	return true, p.seq.Restart(ctx, id)
}

func (p *Policy) giveUp(id, cause string) {
	ev, changed := p.state.Fire(id, eventGiveUp, cause)
	if !changed {
		return
	}
	logger.Errorf("service [%s] exhausted its restart budget, manual intervention required", id)
	p.publish(ev)
	p.notifier.Notify(id, models.SeverityCritical,
		"restart budget exhausted, manual intervention required", cause)
}

/**
 * Reset is the manual operator action recovering a persistently failed service
 * @returns {error} ErrServiceNotFound for unknown ids; nil otherwise
 * @description
 * - No-op on services not in persistent failure
 * - Clears both counters and the backoff schedule, returning the service
 *   to pending so it can be started again
 */
func (p *Policy) Reset(id string) error {
	rt, ok := p.state.Get(id)
	if !ok {
		return models.ErrServiceNotFound
	}
	if rt.State != models.StatePersistentFailure {
		return nil
	}
	p.state.ResetCounters(id)
	p.resetBackoff(id)
	if ev, changed := p.state.Fire(id, eventReset, "operator reset"); changed {
		logger.Infof("service [%s] reset by operator", id)
		p.publish(ev)
	}
	return nil
}

// nextDelay returns 0 on the first restart of an incident and the growing
// backoff on successive ones.
func (p *Policy) nextDelay(spec models.ServiceSpec) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.backoffs[spec.ID]
	if !ok {
		b = backoff.NewExponentialBackOff()
		b.InitialInterval = spec.Restart.Backoff.Initial
		b.MaxInterval = spec.Restart.Backoff.Max
		b.Multiplier = spec.Restart.Backoff.Multiplier
		b.RandomizationFactor = 0
		b.MaxElapsedTime = 0
		b.Reset()
		p.backoffs[spec.ID] = b
		return 0
	}
	return b.NextBackOff()
}

func (p *Policy) resetBackoff(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.backoffs, id)
}

func (p *Policy) markInflight(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[id] {
		return false
	}
	p.inflight[id] = true
	return true
}

func (p *Policy) clearInflight(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}
