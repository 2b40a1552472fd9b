// File: internal/mission/chrono.go
package mission

import (
	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

func (c *Controller) chronoEntry() ([]step, bool) {
	p := c.params
	switch c.chrono {
	case types.ChronoFirstStraight:
		return []step{
			c.do("straight-limit", func() {
				c.robot.Mixer.SetMaxTurnrate(p.ChronoStraightMaxTurnrate)
				c.rampIndex = -1
				c.profileSwapped = false
			}),
			c.followLine(followLeft, 0),
		}, true
	case types.ChronoFirstCurve:
		return []step{c.do("curve-limit", func() { c.robot.Mixer.SetMaxTurnrate(p.ChronoCurveMaxTurnrate) })}, true
	case types.ChronoSecondStraight:
		return []step{c.do("straight-limit", func() {
			c.robot.Mixer.SetMaxTurnrate(p.ChronoStraightMaxTurnrate)
			c.robot.Mixer.SetVelocity(p.ChronoSecondStraightSpeed)
		})}, true
	case types.ChronoSecondCurve:
		return []step{c.do("curve-limit", func() {
			c.robot.Mixer.SetMaxTurnrate(p.ChronoCurveMaxTurnrate)
			c.lineLost.SetThreshold(p.ChronoLineLostThreshold)
		})}, true
	}
	return nil, false
}

func (c *Controller) setChrono(next types.ChronoState, prelude ...step) {
	from := c.chrono
	c.chrono = next
	c.enterSub(string(from), string(next), prelude)
}

func (c *Controller) checkChrono() {
	p := c.params
	switch c.chrono {
	case types.ChronoFirstStraight:
		d := c.distance()
		c.rampSpeed(d)
		if !c.profileSwapped && d > p.ChronoProfileSwapDistance {
			c.profileSwapped = true
			c.applyProfile(config.ProfileRacetrack)
		}
		if d > p.ChronoFirstStraightLength {
			c.setChrono(types.ChronoFirstCurve)
		}

	case types.ChronoFirstCurve:
		if c.distance() > p.ChronoFirstCurveLength {
			c.setChrono(types.ChronoSecondStraight)
		}

	case types.ChronoSecondStraight:
		if c.distance() > p.ChronoSecondStraightLength {
			c.setChrono(types.ChronoSecondCurve)
		}

	case types.ChronoSecondCurve:
		if c.lost {
			c.transition(types.StateFindLine, c.stop())
		}

	default:
		c.lose("unknown chrono state %q", c.chrono)
	}
}

// rampSpeed raises the velocity one sub-interval at a time along the first
// straight.
func (c *Controller) rampSpeed(d float64) {
	speeds := c.params.ChronoRampSpeeds
	if len(speeds) == 0 || c.params.ChronoRampStep <= 0 {
		return
	}
	i := int(d / c.params.ChronoRampStep)
	if i < 0 {
		i = 0
	}
	if i >= len(speeds) {
		i = len(speeds) - 1
	}
	if i != c.rampIndex {
		c.rampIndex = i
		c.robot.Mixer.SetVelocity(speeds[i])
	}
}
