package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackwarden/internal/models"
)

func newHealthFixture(t *testing.T, specs ...models.ServiceSpec) (*HealthEngine, *StateTable, *fakeProber, *eventRecorder) {
	t.Helper()
	reg := mustRegistry(t, specs...)
	state := NewStateTable(reg.IDs())
	prober := newFakeProber()
	rec := &eventRecorder{}
	engine := NewHealthEngine(reg, state, prober, nil, rec.publish)
	t.Cleanup(engine.StopAll)

	// Tests monitor launched services; put them all in starting.
	for _, spec := range specs {
		_, changed := state.Fire(spec.ID, eventLaunch, "")
		require.True(t, changed)
	}
	return engine, state, prober, rec
}

func TestHealthEngineReportsHealthy(t *testing.T) {
	engine, state, _, rec := newHealthFixture(t, testSpec("svc"))

	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateHealthy
	}, "service should become healthy")

	assert.Equal(t, 1, rec.count("svc", models.StateHealthy))
	rt, _ := state.Get("svc")
	assert.Equal(t, 0, rt.ConsecutiveFailures)
	assert.NotEmpty(t, rt.LastCheckAt)
}

func TestHealthEngineMarksUnhealthyAtThreshold(t *testing.T) {
	engine, state, prober, rec := newHealthFixture(t, testSpec("svc"))
	prober.set("svc", false, "conn refused")

	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateUnhealthy
	}, "service should be marked unhealthy")

	rt, _ := state.Get("svc")
	assert.GreaterOrEqual(t, rt.ConsecutiveFailures, 3)
	assert.Equal(t, "conn refused", rt.LastCheckOutput)

	// Continued failures neither re-fire the transition nor grow the
	// counter past threshold+1.
	seen := prober.checkCount("svc")
	waitFor(t, 2*time.Second, func() bool {
		return prober.checkCount("svc") >= seen+4
	}, "probing should continue while unhealthy")
	assert.Equal(t, 1, rec.count("svc", models.StateUnhealthy))
	rt, _ = state.Get("svc")
	assert.LessOrEqual(t, rt.ConsecutiveFailures, 4)
}

func TestHealthEngineGracePeriod(t *testing.T) {
	spec := testSpec("svc")
	spec.Probe.StartPeriod = 150 * time.Millisecond
	engine, state, prober, rec := newHealthFixture(t, spec)
	prober.set("svc", false, "not ready")

	engine.StartMonitor("svc")

	// Failures inside the grace window are recorded but never counted.
	waitFor(t, 2*time.Second, func() bool {
		return prober.checkCount("svc") >= 3
	}, "several probes should run during the grace window")
	assert.Equal(t, models.StateStarting, state.StateOf("svc"))
	rt, _ := state.Get("svc")
	assert.Equal(t, 0, rt.ConsecutiveFailures)
	assert.Equal(t, "not ready", rt.LastCheckOutput)
	assert.Equal(t, 0, rec.count("svc", models.StateUnhealthy))

	// Once the grace window ends the same failures start counting.
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateUnhealthy
	}, "service should be marked unhealthy after the grace window")
}

func TestHealthEngineSuccessDuringGraceIsHealthy(t *testing.T) {
	spec := testSpec("svc")
	spec.Probe.StartPeriod = time.Minute
	engine, state, prober, rec := newHealthFixture(t, spec)
	prober.push("svc",
		probeResult{ok: false, output: "not ready"},
		probeResult{ok: false, output: "not ready"},
	)

	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateHealthy
	}, "a success during the grace window should make the service healthy")

	assert.Equal(t, 0, rec.count("svc", models.StateUnhealthy))
	rt, _ := state.Get("svc")
	assert.Equal(t, 0, rt.ConsecutiveFailures)
}

func TestHealthEngineRecoveryWithoutRestart(t *testing.T) {
	engine, state, prober, rec := newHealthFixture(t, testSpec("svc"))
	prober.set("svc", false, "conn refused")

	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateUnhealthy
	}, "service should be marked unhealthy")

	prober.set("svc", true, "ok")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateHealthy
	}, "service should recover on its own")

	rt, _ := state.Get("svc")
	assert.Equal(t, 0, rt.ConsecutiveFailures)
	assert.Equal(t, 1, rec.count("svc", models.StateUnhealthy))
	assert.Equal(t, 1, rec.count("svc", models.StateHealthy))
}

func TestHealthEngineProbeErrorCountsAsFailure(t *testing.T) {
	engine, state, prober, _ := newHealthFixture(t, testSpec("svc"))
	prober.steady["svc"] = probeResult{err: errors.New("probe timed out")}

	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateUnhealthy
	}, "probe errors should count as failures")

	rt, _ := state.Get("svc")
	assert.Equal(t, "probe timed out", rt.LastCheckOutput)
}

func TestHealthEngineDeadProcessFailsProbe(t *testing.T) {
	reg := mustRegistry(t, testSpec("svc"))
	state := NewStateTable(reg.IDs())
	prober := newFakeProber()
	ctrl := newFakeController()
	rec := &eventRecorder{}
	engine := NewHealthEngine(reg, state, prober, ctrl, rec.publish)
	t.Cleanup(engine.StopAll)

	_, changed := state.Fire("svc", eventLaunch, "")
	require.True(t, changed)
	engine.StartMonitor("svc")
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateHealthy
	}, "service should become healthy")

	// The prober would keep answering, but the process is gone; liveness
	// short-circuits the probe into a failure.
	ctrl.setAlive("svc", false)
	waitFor(t, 2*time.Second, func() bool {
		return state.StateOf("svc") == models.StateUnhealthy
	}, "a dead process should be marked unhealthy")

	rt, _ := state.Get("svc")
	assert.Equal(t, "process not running", rt.LastCheckOutput)
	assert.Equal(t, 1, rec.count("svc", models.StateUnhealthy))
}

func TestHealthEngineStopMonitor(t *testing.T) {
	engine, _, prober, _ := newHealthFixture(t, testSpec("svc"))

	engine.StartMonitor("svc")
	engine.StartMonitor("svc") // second call is a no-op
	waitFor(t, 2*time.Second, func() bool {
		return prober.checkCount("svc") >= 1
	}, "monitor should probe")

	engine.StopMonitor("svc")
	seen := prober.checkCount("svc")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, prober.checkCount("svc"))

	// Stopping again is harmless.
	engine.StopMonitor("svc")
}
