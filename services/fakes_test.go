package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"stackwarden/internal/models"
)

// probeResult is one scripted outcome of a fake probe.
type probeResult struct {
	ok     bool
	output string
	err    error
}

// fakeProber returns scripted results keyed by probe target. Targets without
// a script or steady result report healthy.
type fakeProber struct {
	mu     sync.Mutex
	steady map[string]probeResult
	queues map[string][]probeResult
	checks map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		steady: make(map[string]probeResult),
		queues: make(map[string][]probeResult),
		checks: make(map[string]int),
	}
}

func (f *fakeProber) Check(_ context.Context, spec models.ProbeSpec) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks[spec.Target]++
	if q := f.queues[spec.Target]; len(q) > 0 {
		r := q[0]
		f.queues[spec.Target] = q[1:]
		return r.ok, r.output, r.err
	}
	if r, ok := f.steady[spec.Target]; ok {
		return r.ok, r.output, r.err
	}
	return true, "ok", nil
}

// set pins the steady-state result for a target.
func (f *fakeProber) set(target string, ok bool, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steady[target] = probeResult{ok: ok, output: output}
}

// push enqueues one-shot results consumed before the steady result.
func (f *fakeProber) push(target string, results ...probeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues[target] = append(f.queues[target], results...)
}

func (f *fakeProber) checkCount(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks[target]
}

type controlCall struct {
	op string
	id string
	at time.Time
}

// fakeController records every process operation instead of spawning
// anything. Liveness defaults to true until a test flips it.
type fakeController struct {
	mu       sync.Mutex
	calls    []controlCall
	startErr map[string]error
	alive    map[string]bool
}

func newFakeController() *fakeController {
	return &fakeController{
		startErr: make(map[string]error),
		alive:    make(map[string]bool),
	}
}

func (f *fakeController) Alive(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.alive[id]; ok {
		return v
	}
	return true
}

func (f *fakeController) setAlive(id string, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[id] = alive
}

func (f *fakeController) Start(_ context.Context, spec models.ServiceSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, controlCall{op: "start", id: spec.ID, at: time.Now()})
	return f.startErr[spec.ID]
}

func (f *fakeController) Stop(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, controlCall{op: "stop", id: id, at: time.Now()})
	return nil
}

func (f *fakeController) ForceKill(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, controlCall{op: "kill", id: id, at: time.Now()})
	return nil
}

// callsFor returns the ids of all recorded calls for one operation, in order.
func (f *fakeController) callsFor(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c.id)
		}
	}
	return out
}

func (f *fakeController) countFor(op, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op && c.id == id {
			n++
		}
	}
	return n
}

// callTime returns when the first call matching op/id was recorded.
func (f *fakeController) callTime(op, id string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.op == op && c.id == id {
			return c.at, true
		}
	}
	return time.Time{}, false
}

// eventRecorder collects published transitions for later inspection.
type eventRecorder struct {
	mu  sync.Mutex
	evs []models.TransitionEvent
}

func (r *eventRecorder) publish(ev models.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
}

func (r *eventRecorder) events() []models.TransitionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TransitionEvent(nil), r.evs...)
}

func (r *eventRecorder) count(id string, to models.ServiceState) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.evs {
		if ev.Service == id && ev.To == to {
			n++
		}
	}
	return n
}

// testSpec builds a service declaration with fast timings for tests. The
// probe target doubles as the fake prober's script key.
func testSpec(id string, deps ...string) models.ServiceSpec {
	return models.ServiceSpec{
		ID:        id,
		DependsOn: deps,
		Command:   "/bin/true",
		Probe: models.ProbeSpec{
			Type:     models.ProbeTCP,
			Target:   id,
			Interval: 10 * time.Millisecond,
			Timeout:  5 * time.Millisecond,
			Retries:  3,
		},
		Restart: models.RestartPolicy{
			MaxRestartAttempts: 3,
			Backoff: models.BackoffSpec{
				Initial:    5 * time.Millisecond,
				Max:        20 * time.Millisecond,
				Multiplier: 2,
			},
		},
		StartupTimeout: 2 * time.Second,
		StopGrace:      10 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
