package services

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"stackwarden/internal/models"
)

// FSM event names driving the per-service lifecycle.
const (
	eventLaunch         = "launch"
	eventProbeHealthy   = "probe_healthy"
	eventProbeUnhealthy = "probe_unhealthy"
	eventRestart        = "restart"
	eventGiveUp         = "give_up"
	eventStop           = "stop"
	eventReset          = "reset"
)

func newServiceFSM() *fsm.FSM {
	return fsm.NewFSM(
		string(models.StatePending),
		fsm.Events{
			{Name: eventLaunch, Src: []string{
				string(models.StatePending),
				string(models.StateStopped),
				string(models.StateRestarting),
			}, Dst: string(models.StateStarting)},
			{Name: eventProbeHealthy, Src: []string{
				string(models.StateStarting),
				string(models.StateUnhealthy),
			}, Dst: string(models.StateHealthy)},
			{Name: eventProbeUnhealthy, Src: []string{
				string(models.StateStarting),
				string(models.StateHealthy),
			}, Dst: string(models.StateUnhealthy)},
			{Name: eventRestart, Src: []string{
				string(models.StateUnhealthy),
			}, Dst: string(models.StateRestarting)},
			{Name: eventGiveUp, Src: []string{
				string(models.StateUnhealthy),
				string(models.StateRestarting),
			}, Dst: string(models.StatePersistentFailure)},
			{Name: eventStop, Src: []string{
				string(models.StatePending),
				string(models.StateStarting),
				string(models.StateHealthy),
				string(models.StateUnhealthy),
				string(models.StateRestarting),
			}, Dst: string(models.StateStopped)},
			{Name: eventReset, Src: []string{
				string(models.StatePersistentFailure),
			}, Dst: string(models.StatePending)},
		},
		fsm.Callbacks{},
	)
}

// StateTable owns every ServiceRuntime record and the state machine guarding
// its transitions. It is the single shared resource of the supervisor; the
// lock is held only for short field updates and snapshot copies, never
// across a probe or process operation.
type StateTable struct {
	mu       sync.Mutex
	runtimes map[string]*models.ServiceRuntime
	machines map[string]*fsm.FSM
}

func NewStateTable(ids []string) *StateTable {
	t := &StateTable{
		runtimes: make(map[string]*models.ServiceRuntime, len(ids)),
		machines: make(map[string]*fsm.FSM, len(ids)),
	}
	for _, id := range ids {
		t.runtimes[id] = &models.ServiceRuntime{ID: id, State: models.StatePending}
		t.machines[id] = newServiceFSM()
	}
	return t
}

/**
 * Fire attempts a lifecycle transition for a service
 * @param {string} id - Service id
 * @param {string} event - One of the FSM event names
 * @param {string} output - Context recorded on the resulting transition event
 * @returns {(models.TransitionEvent, bool)} The transition, and whether a state change happened
 * @description
 * - Transitions illegal in the current state are rejected, not applied
 * - A launch resets the consecutive-failure counter
 */
func (t *StateTable) Fire(id, event, output string) (models.TransitionEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.machines[id]
	if !ok {
		return models.TransitionEvent{}, false
	}
	rt := t.runtimes[id]
	from := rt.State

	if err := m.Event(context.Background(), event); err != nil {
		return models.TransitionEvent{}, false
	}
	rt.State = models.ServiceState(m.Current())
	if event == eventLaunch {
		rt.ConsecutiveFailures = 0
	}
	return models.TransitionEvent{
		Service: id,
		From:    from,
		To:      rt.State,
		At:      time.Now(),
		Output:  output,
	}, true
}

/**
 * RecordProbe stores a probe result on the runtime record
 * @param {string} id - Service id
 * @param {bool} ok - Probe outcome
 * @param {string} output - Probe output, overwritten on every probe
 * @param {bool} counted - False while the start-period grace is active
 * @param {int} threshold - Failure threshold; the counter is clamped at threshold+1
 * @returns {int} The consecutive-failure count after this probe
 */
func (t *StateTable) RecordProbe(id string, ok bool, output string, counted bool, threshold int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rt, exists := t.runtimes[id]
	if !exists {
		return 0
	}
	rt.LastCheckAt = time.Now().Format(time.RFC3339)
	rt.LastCheckOutput = output
	if ok {
		rt.ConsecutiveFailures = 0
	} else if counted && rt.ConsecutiveFailures <= threshold {
		rt.ConsecutiveFailures++
	}
	return rt.ConsecutiveFailures
}

// SetStarted records the launch time of a service.
func (t *StateTable) SetStarted(id string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt, ok := t.runtimes[id]; ok {
		rt.StartTime = at.Format(time.RFC3339)
	}
}

// IncrementRestart bumps the restart counter and returns the new value.
func (t *StateTable) IncrementRestart(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	rt, ok := t.runtimes[id]
	if !ok {
		return 0
	}
	rt.RestartCount++
	return rt.RestartCount
}

// ResetCounters clears both failure counters. Operator action only.
func (t *StateTable) ResetCounters(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt, ok := t.runtimes[id]; ok {
		rt.RestartCount = 0
		rt.ConsecutiveFailures = 0
	}
}

// Get returns a copy of the runtime record for id.
func (t *StateTable) Get(id string) (models.ServiceRuntime, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rt, ok := t.runtimes[id]
	if !ok {
		return models.ServiceRuntime{}, false
	}
	return *rt, true
}

// StateOf returns the current lifecycle state of id.
func (t *StateTable) StateOf(id string) models.ServiceState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rt, ok := t.runtimes[id]; ok {
		return rt.State
	}
	return ""
}

// Snapshot returns a consistent point-in-time copy of every runtime record.
func (t *StateTable) Snapshot() map[string]models.ServiceRuntime {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]models.ServiceRuntime, len(t.runtimes))
	for id, rt := range t.runtimes {
		out[id] = *rt
	}
	return out
}

// CountByState tallies services per lifecycle state.
func (t *StateTable) CountByState() map[models.ServiceState]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[models.ServiceState]int)
	for _, rt := range t.runtimes {
		out[rt.State]++
	}
	return out
}
