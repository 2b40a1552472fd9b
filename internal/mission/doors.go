// File: internal/mission/doors.go
package mission

import (
	"math"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

func (c *Controller) doorEntry() ([]step, bool) {
	p := c.params
	switch c.door {
	case types.DoorTravelDistance:
		return []step{c.followLine(followLeft, 0)}, true
	case types.DoorTurnToWall:
		return []step{c.turn(p.DoorTurnToWall)}, true
	case types.DoorToWall:
		return []step{c.manual(p.DoorWallSpeed, 0)}, true
	case types.DoorPerpendicularToWall:
		return []step{c.manual(0, p.DoorAlignTurnrate)}, true
	case types.DoorGetCloseToWall:
		return []step{c.creep(p.DoorBackoffSpeed, config.Seconds(p.DoorBackoffTime))}, true
	case types.DoorFirstDoor:
		return []step{c.manual(p.FollowLineSpeed, 0)}, true
	case types.DoorGetToIntersection:
		return []step{c.turn(quarterTurn), c.followLine(followLeft, 0)}, true
	case types.DoorSecondDoor:
		return []step{
			c.do("line-lost-threshold", func() { c.lineLost.SetThreshold(p.DoorLineLostThreshold) }),
			c.followLine(followRight, 0),
		}, true
	}
	return nil, false
}

func (c *Controller) setDoor(next types.DoorState, prelude ...step) {
	from := c.door
	c.door = next
	c.enterSub(string(from), string(next), prelude)
}

func (c *Controller) checkDoors() {
	p := c.params
	switch c.door {
	case types.DoorTravelDistance:
		if c.distance() > p.DoorApproachDistance {
			c.setDoor(types.DoorTurnToWall, c.stop())
		}

	case types.DoorTurnToWall:
		c.setDoor(types.DoorToWall)

	case types.DoorToWall:
		if d, ok := c.channel(p.DoorFrontChannel); ok && d < p.DoorWallDistance {
			c.setDoor(types.DoorPerpendicularToWall)
		}

	case types.DoorPerpendicularToWall:
		// Raw difference of the two channels, no debounce.
		front, okFront := c.channel(p.DoorFrontChannel)
		side, okSide := c.channel(p.DoorSideChannel)
		if okFront && okSide && math.Abs(front-side) < p.DoorPerpendicularTolerance {
			c.setDoor(types.DoorGetCloseToWall)
		}

	case types.DoorGetCloseToWall:
		c.setDoor(types.DoorFirstDoor)

	case types.DoorFirstDoor:
		if c.distance() > p.DoorFirstDoorDistance {
			c.setDoor(types.DoorGetToIntersection, c.manualOff(), c.stop())
		}

	case types.DoorGetToIntersection:
		if c.consumeIntersection() {
			c.setDoor(types.DoorSecondDoor)
		}

	case types.DoorSecondDoor:
		if c.lost {
			c.transition(types.StateToChrono, c.stop(), c.turn(halfTurn))
		}

	default:
		c.lose("unknown door state %q", c.door)
	}
}
