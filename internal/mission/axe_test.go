package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robobot-mission/internal/types"
)

// Scenario: front distance 1.0, then 0.2 while the gate is down, then 0.9.
func TestAxeSequence(t *testing.T) {
	h := newHarness(t)
	h.robot.dists = []float64{1.0, 1.0}
	h.startIn(types.StateAxe)

	h.driveUntil(50, 0.05, h.inSub(string(types.AxeWaitForAxe)))
	assert.Contains(t, h.robot.calls, "manual true 0.20 0.00", "bang-bang approach")

	h.tick()
	assert.True(t, h.robot.manual)
	assert.Zero(t, h.robot.manualV)

	for i := 0; i < 10; i++ {
		h.tick()
		require.Equal(t, string(types.AxeWaitForAxe), h.c.subState())
	}

	h.robot.dists = []float64{1.0, 0.2}
	h.tick()
	require.Equal(t, string(types.AxeWaitForFree), h.c.subState())

	for i := 0; i < 10; i++ {
		h.tick()
		require.Equal(t, string(types.AxeWaitForFree), h.c.subState())
	}

	h.robot.dists = []float64{1.0, 0.9}
	h.tick()
	require.Equal(t, string(types.AxeCross), h.c.subState())

	h.tick()
	assert.True(t, h.robot.manual)
	assert.Equal(t, 0.4, h.robot.manualV)

	assert.Equal(t, []string{
		string(types.AxeWaitForAxe),
		string(types.AxeWaitForFree),
		string(types.AxeCross),
	}, h.obs.path(string(types.StateAxe)))
}

func TestAxeCrossToDoors(t *testing.T) {
	h := newHarness(t)
	h.enterSubState(types.StateAxe, func() { h.c.axe = types.AxeCross })

	h.driveUntil(50, 0.1, h.inSub(string(types.AxeToIntersection)))
	h.tick()
	assert.False(t, h.robot.manual)
	assert.False(t, h.robot.edgeLeft, "follows the right edge")

	h.crossIntersection()
	require.Equal(t, types.StateDoors, h.c.State())
	assert.Equal(t, string(types.DoorTravelDistance), h.c.subState())

	h.tick()
	assert.Contains(t, h.robot.calls, "heading -1.17")
	assert.True(t, h.robot.edgeLeft)
}

func TestAxeBangBangLostKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	h.startIn(types.StateAxe)
	h.tick()

	h.robot.edge = EdgeReading{}
	for i := 0; i < 20; i++ {
		h.tick()
	}
	assert.Equal(t, string(types.AxeGetNear), h.c.subState())
	assert.Equal(t, "manual true 0.00 0.00", h.robot.calls[len(h.robot.calls)-1])
	assert.Equal(t, types.OutcomeNone, h.c.Outcome())
}
