// File: internal/mission/maneuver.go
package mission

import (
	"math"
	"time"
)

// step is one part of an entry sequence. begin runs once when the step starts,
// until is polled every tick with the time since begin, end runs once when
// until reports completion. A step without until completes on the tick it
// begins, so consecutive instant steps run together.
type step struct {
	name  string
	begin func()
	until func(elapsed time.Duration) bool
	end   func()
}

type sequence struct {
	steps   []step
	index   int
	started bool
	since   time.Time
}

func newSequence(steps []step) *sequence {
	return &sequence{steps: steps}
}

// advance runs steps until one is still in progress.
func (s *sequence) advance(now time.Time) {
	for s.index < len(s.steps) {
		st := &s.steps[s.index]
		if !s.started {
			s.started = true
			s.since = now
			if st.begin != nil {
				st.begin()
			}
		}
		if st.until != nil && !st.until(now.Sub(s.since)) {
			return
		}
		if st.end != nil {
			st.end()
		}
		s.index++
		s.started = false
	}
}

func (s *sequence) done() bool {
	return s == nil || s.index >= len(s.steps)
}

// current names the step in progress, empty when done.
func (s *sequence) current() string {
	if s.done() {
		return ""
	}
	return s.steps[s.index].name
}

func (c *Controller) do(name string, fn func()) step {
	return step{name: name, begin: fn}
}

func (c *Controller) hold(d time.Duration) step {
	return step{
		name:  "hold",
		until: func(elapsed time.Duration) bool { return elapsed >= d },
	}
}

// stop zeroes the velocity and waits for the robot to settle.
func (c *Controller) stop() step {
	return step{
		name:  "stop",
		begin: func() { c.robot.Mixer.SetVelocity(0) },
		until: func(elapsed time.Duration) bool { return elapsed >= c.settle },
	}
}

// manualStop holds the robot with manual control at zero speed.
func (c *Controller) manualStop() step {
	return step{
		name:  "manual-stop",
		begin: func() { c.robot.Mixer.SetManualControl(true, 0, 0) },
		until: func(elapsed time.Duration) bool { return elapsed >= c.settle },
	}
}

func (c *Controller) manualOff() step {
	return c.do("manual-off", func() { c.robot.Mixer.SetManualControl(false, 0, 0) })
}

func (c *Controller) manual(v, w float64) step {
	return c.do("manual", func() { c.robot.Mixer.SetManualControl(true, v, w) })
}

// turn rotates in place by theta radians from a fresh odometry frame. It
// completes once the heading magnitude is within turn_tolerance of the
// target and the robot has settled.
func (c *Controller) turn(theta float64) step {
	reached := time.Duration(-1)
	return step{
		name: "turn",
		begin: func() {
			c.resetOdometry()
			c.robot.Mixer.SetVelocity(0)
			c.robot.Mixer.SetDesiredHeading(theta)
			c.log.Debugf("Turning %.1f degrees", theta*180/math.Pi)
		},
		until: func(elapsed time.Duration) bool {
			if reached < 0 {
				if math.Abs(c.robot.Odometry.Heading()) < math.Abs(theta)-c.params.TurnTolerance {
					return false
				}
				reached = elapsed
			}
			return elapsed-reached >= c.settle
		},
	}
}

// creep drives with manual velocity v for d, then hands control back.
func (c *Controller) creep(v float64, d time.Duration) step {
	return step{
		name:  "creep",
		begin: func() { c.robot.Mixer.SetManualControl(true, v, 0) },
		until: func(elapsed time.Duration) bool { return elapsed >= d },
		end:   func() { c.robot.Mixer.SetManualControl(false, 0, 0) },
	}
}

// followLine sets follow_line_speed and edge following on one side of the
// line. A zero margin selects default_follow_line_margin.
func (c *Controller) followLine(right bool, margin float64) step {
	return c.followLineAt(right, margin, c.params.FollowLineSpeed)
}

func (c *Controller) followLineAt(right bool, margin, speed float64) step {
	if margin == 0 {
		margin = c.params.DefaultFollowLineMargin
	}
	margin = math.Abs(margin)
	return c.do("follow-line", func() {
		c.robot.Mixer.SetVelocity(speed)
		if right {
			c.robot.Mixer.SetEdgeMode(false, -margin)
		} else {
			c.robot.Mixer.SetEdgeMode(true, margin)
		}
	})
}

// calibrate applies a named edge sensor profile.
func (c *Controller) calibrate(name string) step {
	return c.do("calibrate", func() { c.applyProfile(name) })
}

func (c *Controller) applyProfile(name string) {
	profile, ok := c.profiles[name]
	if !ok {
		c.log.Warnf("Calibration profile %q not configured, keeping current thresholds", name)
		return
	}
	c.robot.Edge.SetCalibrationProfile(profile)
	c.mlog.Log(string(c.state), "calibration profile %s", name)
}
