// File: internal/mission/roundabout.go
package mission

import (
	"time"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

// roundaboutExitDelay keeps the robot from picking up the line it is turning
// away from when leaving the roundabout.
const roundaboutExitDelay = 500 * time.Millisecond

func (c *Controller) roundaboutEntry() ([]step, bool) {
	p := c.params
	switch c.roundabout {
	case types.RoundaboutTurnToWait:
		return []step{
			c.turn(quarterTurn),
			c.creep(p.RoundaboutReverseSpeed, config.Seconds(p.RoundaboutReverseTime)),
		}, true
	case types.RoundaboutWaitForArrival:
		return []step{c.do("hold", func() { c.robot.Mixer.SetVelocity(0) })}, true
	case types.RoundaboutWaitForDeparture:
		return nil, true
	case types.RoundaboutEnter:
		return []step{c.do("enter", func() { c.robot.Mixer.SetVelocity(p.RoundaboutEnterSpeed) })}, true
	case types.RoundaboutFollowLine:
		return []step{
			c.followLine(followRight, 0),
			c.do("bias", func() { c.robot.Mixer.SetTurnrate(p.RoundaboutTurnrateBias) }),
		}, true
	case types.RoundaboutExit:
		return []step{
			c.stop(),
			c.turn(p.RoundaboutExitTurn),
			c.followLine(followLeft, 0),
		}, true
	}
	return nil, false
}

func (c *Controller) setRoundabout(next types.RoundaboutState, prelude ...step) {
	from := c.roundabout
	c.roundabout = next
	c.enterSub(string(from), string(next), prelude)
}

func (c *Controller) checkRoundabout(now time.Time) {
	p := c.params
	switch c.roundabout {
	case types.RoundaboutTurnToWait:
		c.setRoundabout(types.RoundaboutWaitForArrival)

	case types.RoundaboutWaitForArrival:
		if d, ok := c.channel(p.RegbotDistanceChannel); ok && d < p.MinimumDistanceToRegbot {
			c.setRoundabout(types.RoundaboutWaitForDeparture)
		}

	case types.RoundaboutWaitForDeparture:
		// The companion robot cannot be sensed leaving, so wait a fixed time.
		if now.Sub(c.enteredAt) > config.Seconds(p.SecondsForRegbotToLeave) {
			c.setRoundabout(types.RoundaboutEnter)
		}

	case types.RoundaboutEnter:
		if c.edge.Valid && c.distance() > p.RoundaboutApproachDistance {
			c.setRoundabout(types.RoundaboutFollowLine, c.stop())
		}

	case types.RoundaboutFollowLine:
		if c.consumeIntersection() {
			c.setRoundabout(types.RoundaboutExit)
		}

	case types.RoundaboutExit:
		if c.edge.Valid && now.Sub(c.readyAt) >= roundaboutExitDelay {
			c.transition(types.StateToAxe)
		}

	default:
		c.lose("unknown roundabout state %q", c.roundabout)
	}
}
