package mission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

func velocities(calls []string) []string {
	var out []string
	for _, c := range calls {
		if strings.HasPrefix(c, "vel ") {
			out = append(out, c)
		}
	}
	return out
}

func TestChronoProfile(t *testing.T) {
	h := newHarness(t)
	h.startIn(types.StateToChrono)

	h.tick()
	assert.Equal(t, 1.0, h.robot.maxTurnrate)
	assert.Equal(t, 0.3, h.robot.velocity)

	h.driveUntil(50, 0.05, h.inSub(string(types.ChronoFirstCurve)))
	vel := velocities(h.robot.calls)
	assert.Contains(t, vel, "vel 0.50")
	assert.Equal(t, "vel 0.70", vel[len(vel)-1], "ramp clamps at the last speed")
	require.Len(t, h.robot.profiles, 1, "racetrack profile applied once")
	assert.Equal(t, testProfiles[config.ProfileRacetrack], h.robot.profiles[0])

	h.tick()
	assert.Equal(t, 3.0, h.robot.maxTurnrate)

	h.driveUntil(50, 0.05, h.inSub(string(types.ChronoSecondStraight)))
	h.tick()
	assert.Equal(t, 1.0, h.robot.maxTurnrate)
	assert.Equal(t, 0.6, h.robot.velocity)

	h.driveUntil(50, 0.05, h.inSub(string(types.ChronoSecondCurve)))
	h.tick()
	assert.Equal(t, 3.0, h.robot.maxTurnrate)
	assert.Equal(t, 4, h.c.lineLost.Threshold())

	h.robot.edge.Valid = false
	h.tickUntil(10, h.inState(types.StateFindLine))
	assert.Len(t, h.robot.profiles, 1)

	assert.Equal(t, []string{
		string(types.ChronoFirstCurve),
		string(types.ChronoSecondStraight),
		string(types.ChronoSecondCurve),
	}, h.obs.path(string(types.StateToChrono)))
}

func TestChronoLineLostIgnoredBeforeSecondCurve(t *testing.T) {
	h := newHarness(t)
	h.startIn(types.StateToChrono)
	h.tick()

	h.robot.edge.Valid = false
	for i := 0; i < 20; i++ {
		h.tick()
	}
	assert.Equal(t, types.StateToChrono, h.c.State())
	assert.Equal(t, string(types.ChronoFirstStraight), h.c.subState())
}

func TestRampSpeedIndex(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 0.3},
		{0.3, 0.5},
		{0.6, 0.7},
		{5, 0.7},
		{-1, 0.3},
	}
	for _, tt := range tests {
		h.c.rampIndex = -1
		h.c.rampSpeed(tt.distance)
		assert.Equal(t, tt.want, h.robot.velocity, "distance %v", tt.distance)
	}
}
