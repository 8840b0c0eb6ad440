package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackwarden/internal/models"
)

func TestStateTableLifecycle(t *testing.T) {
	table := NewStateTable([]string{"svc"})
	assert.Equal(t, models.StatePending, table.StateOf("svc"))

	ev, changed := table.Fire("svc", eventLaunch, "")
	require.True(t, changed)
	assert.Equal(t, models.StatePending, ev.From)
	assert.Equal(t, models.StateStarting, ev.To)

	_, changed = table.Fire("svc", eventProbeHealthy, "")
	require.True(t, changed)
	assert.Equal(t, models.StateHealthy, table.StateOf("svc"))

	_, changed = table.Fire("svc", eventProbeUnhealthy, "conn refused")
	require.True(t, changed)

	_, changed = table.Fire("svc", eventRestart, "")
	require.True(t, changed)
	assert.Equal(t, models.StateRestarting, table.StateOf("svc"))

	_, changed = table.Fire("svc", eventGiveUp, "")
	require.True(t, changed)
	assert.Equal(t, models.StatePersistentFailure, table.StateOf("svc"))

	// Persistent failure only yields to the operator reset.
	_, changed = table.Fire("svc", eventLaunch, "")
	assert.False(t, changed)
	_, changed = table.Fire("svc", eventStop, "")
	assert.False(t, changed)

	_, changed = table.Fire("svc", eventReset, "operator reset")
	require.True(t, changed)
	assert.Equal(t, models.StatePending, table.StateOf("svc"))
}

func TestStateTableRejectsIllegalTransitions(t *testing.T) {
	table := NewStateTable([]string{"svc"})

	// Probe outcomes mean nothing before a launch.
	_, changed := table.Fire("svc", eventProbeHealthy, "")
	assert.False(t, changed)
	_, changed = table.Fire("svc", eventRestart, "")
	assert.False(t, changed)
	assert.Equal(t, models.StatePending, table.StateOf("svc"))

	_, changed = table.Fire("unknown", eventLaunch, "")
	assert.False(t, changed)
}

func TestStateTableProbeCounting(t *testing.T) {
	table := NewStateTable([]string{"svc"})

	// Failures inside the grace window are recorded but not counted.
	n := table.RecordProbe("svc", false, "starting up", false, 3)
	assert.Equal(t, 0, n)
	rt, _ := table.Get("svc")
	assert.Equal(t, "starting up", rt.LastCheckOutput)
	assert.NotEmpty(t, rt.LastCheckAt)

	for i := 1; i <= 3; i++ {
		n = table.RecordProbe("svc", false, "conn refused", true, 3)
		assert.Equal(t, i, n)
	}

	// The counter clamps at threshold+1 under continued failures.
	for i := 0; i < 5; i++ {
		n = table.RecordProbe("svc", false, "conn refused", true, 3)
	}
	assert.Equal(t, 4, n)

	// One success clears the streak.
	n = table.RecordProbe("svc", true, "ok", true, 3)
	assert.Equal(t, 0, n)
}

func TestStateTableLaunchResetsFailureStreak(t *testing.T) {
	table := NewStateTable([]string{"svc"})
	table.RecordProbe("svc", false, "x", true, 3)
	table.RecordProbe("svc", false, "x", true, 3)

	_, changed := table.Fire("svc", eventLaunch, "")
	require.True(t, changed)
	rt, _ := table.Get("svc")
	assert.Equal(t, 0, rt.ConsecutiveFailures)
}

func TestStateTableCounters(t *testing.T) {
	table := NewStateTable([]string{"svc"})
	assert.Equal(t, 1, table.IncrementRestart("svc"))
	assert.Equal(t, 2, table.IncrementRestart("svc"))
	table.RecordProbe("svc", false, "x", true, 3)

	table.ResetCounters("svc")
	rt, _ := table.Get("svc")
	assert.Equal(t, 0, rt.RestartCount)
	assert.Equal(t, 0, rt.ConsecutiveFailures)
}

func TestStateTableSnapshotIsACopy(t *testing.T) {
	table := NewStateTable([]string{"a", "b"})
	table.SetStarted("a", time.Now())

	snap := table.Snapshot()
	require.Len(t, snap, 2)

	mutated := snap["a"]
	mutated.State = models.StateHealthy
	mutated.RestartCount = 99
	snap["a"] = mutated

	rt, _ := table.Get("a")
	assert.Equal(t, models.StatePending, rt.State)
	assert.Equal(t, 0, rt.RestartCount)
}

func TestStateTableCountByState(t *testing.T) {
	table := NewStateTable([]string{"a", "b", "c"})
	table.Fire("a", eventLaunch, "")
	table.Fire("b", eventLaunch, "")
	table.Fire("b", eventProbeHealthy, "")

	counts := table.CountByState()
	assert.Equal(t, 1, counts[models.StatePending])
	assert.Equal(t, 1, counts[models.StateStarting])
	assert.Equal(t, 1, counts[models.StateHealthy])
}
