// File: internal/mission/segments.go
package mission

import (
	"math"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

const (
	followLeft  = false
	followRight = true

	quarterTurn = math.Pi / 2
	halfTurn    = math.Pi
)

// entrySteps returns the entry action of the current state, descending into
// the nested machine when the state owns one.
func (c *Controller) entrySteps() ([]step, bool) {
	p := c.params
	switch c.state {
	case types.StateStartToFirstIntersection:
		return []step{c.followLine(followLeft, 0)}, true
	case types.StateToRoundabout:
		return []step{c.followLine(followLeft, p.AvoidRegbotMargin)}, true
	case types.StateRoundabout:
		return c.roundaboutEntry()
	case types.StateToAxe:
		return []step{c.followLine(followRight, 0)}, true
	case types.StateAxe:
		return c.axeEntry()
	case types.StateDoors:
		return c.doorEntry()
	case types.StateToChrono:
		return c.chronoEntry()
	case types.StateFindLine:
		return []step{c.do("drive-straight", func() { c.robot.Mixer.SetVelocity(p.FollowLineSpeed) })}, true
	case types.StateUpRamp:
		return []step{c.followLine(followLeft, 0)}, true
	case types.StateToSeesaw:
		return []step{
			c.calibrate(config.ProfileWood),
			c.turn(p.SeesawTurn),
			c.followLine(followRight, 0),
		}, true
	case types.StateSeesaw:
		return []step{
			c.followLine(followRight, 0),
			c.turn(quarterTurn),
			c.followLineAt(followRight, 0, p.SeesawSpeed),
		}, true
	case types.StateToSiren:
		return []step{
			c.do("disarm", func() { c.sirenArmed = false }),
			c.calibrate(config.ProfileSiren),
			c.turn(p.SirenTurn),
			c.followLine(followRight, 0),
		}, true
	}
	return nil, false
}

func (c *Controller) checkStartToFirstIntersection() {
	if c.consumeIntersection() {
		c.transition(types.StateToRoundabout)
	}
}

func (c *Controller) checkToRoundabout() {
	if c.distance() > c.params.DistanceToRoundabout {
		c.transition(types.StateRoundabout, c.stop())
	}
}

func (c *Controller) checkToAxe() {
	if c.consumeIntersection() {
		c.transition(types.StateAxe, c.stop(), c.turn(c.params.AxeEntryTurn))
	}
}

func (c *Controller) checkFindLine() {
	if c.edge.Valid {
		c.transition(types.StateUpRamp, c.stop(), c.turn(quarterTurn))
	}
}

func (c *Controller) checkUpRamp() {
	if c.distance() > c.params.DistanceBefore180Turn {
		c.transition(types.StateToSeesaw)
	}
}

func (c *Controller) checkToSeesaw() {
	if c.intersection && c.distance() > c.params.SeesawMinDistance {
		c.consumeIntersection()
		c.transition(types.StateSeesaw, c.stop())
	}
}

func (c *Controller) checkSeesaw() {
	if c.intersection && c.distance() > c.params.SeesawAdvanceDist {
		c.consumeIntersection()
		c.transition(types.StateToSiren)
	}
}

// checkToSiren arms on the first intersection and finishes the mission on
// the second.
func (c *Controller) checkToSiren() {
	if !c.consumeIntersection() {
		return
	}
	if !c.sirenArmed {
		c.sirenArmed = true
		c.resetOdometry()
		c.mlog.Log(string(c.state), "siren armed")
		return
	}
	c.perform(
		c.stop(),
		c.turn(c.params.SirenFinalTurn),
		c.do("finish", func() { c.finish(types.OutcomeFinished, "siren reached") }),
	)
}
