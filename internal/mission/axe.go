// File: internal/mission/axe.go
package mission

import (
	"robobot-mission/internal/types"
)

func (c *Controller) axeEntry() ([]step, bool) {
	p := c.params
	switch c.axe {
	case types.AxeGetNear:
		return []step{c.do("bang-bang", c.follower.Reset)}, true
	case types.AxeWaitForAxe, types.AxeWaitForFree:
		return nil, true
	case types.AxeCross:
		return []step{c.manual(p.AxeCrossSpeed, 0)}, true
	case types.AxeToIntersection:
		return []step{c.manualOff(), c.followLine(followRight, 0)}, true
	}
	return nil, false
}

func (c *Controller) setAxe(next types.AxeState, prelude ...step) {
	from := c.axe
	c.axe = next
	c.enterSub(string(from), string(next), prelude)
}

func (c *Controller) checkAxe() {
	p := c.params
	switch c.axe {
	case types.AxeGetNear:
		if c.distance() > p.AxeApproachDistance {
			c.setAxe(types.AxeWaitForAxe, c.manualStop())
			return
		}
		if !c.follower.Update(c.edge) {
			c.log.Warnf("Line lost while approaching the axe")
		}

	case types.AxeWaitForAxe:
		if d, ok := c.channel(p.AxeDistanceChannel); ok && d < p.MinimumDistanceToAxe {
			c.setAxe(types.AxeWaitForFree)
		}

	case types.AxeWaitForFree:
		if d, ok := c.channel(p.AxeDistanceChannel); ok && d > p.FreeDistanceToAxe {
			c.setAxe(types.AxeCross)
		}

	case types.AxeCross:
		if c.distance() > p.DistanceToCrossAxe {
			c.setAxe(types.AxeToIntersection)
		}

	case types.AxeToIntersection:
		if c.consumeIntersection() {
			c.transition(types.StateDoors, c.stop(), c.turn(p.AxeExitTurn))
		}

	default:
		c.lose("unknown axe state %q", c.axe)
	}
}
