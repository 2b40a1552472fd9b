// File: internal/mission/controller.go
package mission

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"robobot-mission/internal/config"
	"robobot-mission/internal/logger"
	"robobot-mission/internal/types"
)

// Settings is the immutable input of a mission run.
type Settings struct {
	Parameters   config.Parameters
	Profiles     map[string]config.CalibrationProfile
	TickInterval time.Duration
	SettleTime   time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Parameters:   cfg.Parameters,
		Profiles:     cfg.Profiles,
		TickInterval: cfg.Mission.TickInterval,
		SettleTime:   cfg.Mission.SettleTime,
	}
}

type Option func(*Controller)

// WithClock replaces time.Now, used by tests to script elapsed time.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithMissionLog(ml *logger.MissionLog) Option {
	return func(c *Controller) { c.mlog = ml }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Controller) { c.log = l.WithTag("mission") }
}

func WithSampler(s Sampler) Option {
	return func(c *Controller) { c.sampler = s }
}

// Controller runs the mission state machine. It is driven from a single
// goroutine; nothing in it is safe for concurrent use.
type Controller struct {
	robot        Robot
	params       config.Parameters
	profiles     map[string]config.CalibrationProfile
	settle       time.Duration
	tickInterval time.Duration
	stopFlag     StopFlag
	sampler      Sampler
	observer     Observer
	mlog         *logger.MissionLog
	log          *logger.Logger
	now          func() time.Time
	warnLimit    *rate.Limiter

	state      types.MissionState
	roundabout types.RoundaboutState
	axe        types.AxeState
	door       types.DoorState
	chrono     types.ChronoState

	started    bool
	latched    bool
	seq        *sequence
	stateSince time.Time // entry of the top level state
	enteredAt  time.Time // entry of the innermost state
	readyAt    time.Time // completion of the innermost entry sequence

	intersections *IntersectionDetector
	lineLost      *LineLostDetector
	follower      *BangBang

	// per tick inputs
	edge         EdgeReading
	distances    []float64
	sensorsOK    bool
	intersection bool
	lost         bool

	rampIndex      int
	profileSwapped bool
	sirenArmed     bool

	ticks   uint64
	outcome types.Outcome
}

func NewController(robot Robot, settings Settings, stop StopFlag, opts ...Option) *Controller {
	p := settings.Parameters
	c := &Controller{
		robot:         robot,
		params:        p,
		profiles:      settings.Profiles,
		settle:        settings.SettleTime,
		tickInterval:  settings.TickInterval,
		stopFlag:      stop,
		log:           logger.Nop(),
		now:           time.Now,
		warnLimit:     rate.NewLimiter(rate.Every(time.Second), 1),
		state:         types.StateStartToFirstIntersection,
		intersections: NewIntersectionDetector(p.ThresholdDistanceToStartDetection, p.MinimumLineWidth),
		lineLost:      NewLineLostDetector(p.LineLostThreshold),
		follower:      NewBangBang(robot.Mixer, p.AxeApproachSpeed, p.BangBangTurnrate),
		rampIndex:     -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ticks until the mission ends and returns how it ended. Cancelling ctx
// aborts the run on the next tick.
func (c *Controller) Run(ctx context.Context) types.Outcome {
	var ticker *time.Ticker
	if c.tickInterval > 0 {
		ticker = time.NewTicker(c.tickInterval)
		defer ticker.Stop()
	}
	for {
		if outcome := c.Tick(ctx); outcome != types.OutcomeNone {
			return outcome
		}
		if ticker == nil {
			continue
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// Tick performs one read, decide, act cycle. It returns OutcomeNone while
// the mission is in progress.
func (c *Controller) Tick(ctx context.Context) types.Outcome {
	if c.outcome != types.OutcomeNone {
		return c.outcome
	}
	if ctx.Err() != nil || (c.stopFlag != nil && c.stopFlag.Stopped()) {
		c.finish(types.OutcomeAborted, "stop requested")
		c.notifyTick()
		return c.outcome
	}

	now := c.now()
	c.ticks++
	c.sense(ctx, now)
	// The initial entry resets odometry, so it needs a fresh pose to take
	// as origin. Readings from before the reset are discarded by begin.
	if !c.started {
		c.begin(now)
	}

	if c.latched {
		c.seq.advance(now)
		if c.outcome == types.OutcomeNone && c.seq.done() {
			c.latched = false
			c.readyAt = now
		}
	}
	if !c.latched && c.outcome == types.OutcomeNone {
		c.dispatch(now)
	}

	c.notifyTick()
	return c.outcome
}

func (c *Controller) begin(now time.Time) {
	c.started = true
	c.log.Infof("Mission started in %s", c.state)
	c.mlog.Log(string(c.state), "mission started")
	c.stateSince = now
	c.resetSubStates()
	c.enter(now, nil)
}

func (c *Controller) sense(ctx context.Context, now time.Time) {
	c.sensorsOK = true
	if c.sampler != nil {
		if err := c.sampler.Sample(ctx); err != nil {
			c.sensorsOK = false
			if c.warnLimit.AllowN(now, 1) {
				c.log.Warnf("Sensor sample failed, treating edge as invalid: %v", err)
			}
		}
	}
	if c.sensorsOK {
		c.edge = c.robot.Edge.Edge()
		c.distances = c.robot.Distance.Distances()
	} else {
		c.edge = EdgeReading{}
		c.distances = nil
	}
	c.intersection = c.intersections.Detect(c.edge.Width, c.robot.Odometry.Distance())
	c.lost = c.lineLost.Detect(c.edge.Valid)
}

func (c *Controller) dispatch(now time.Time) {
	switch c.state {
	case types.StateStartToFirstIntersection:
		c.checkStartToFirstIntersection()
	case types.StateToRoundabout:
		c.checkToRoundabout()
	case types.StateRoundabout:
		c.checkRoundabout(now)
	case types.StateToAxe:
		c.checkToAxe()
	case types.StateAxe:
		c.checkAxe()
	case types.StateDoors:
		c.checkDoors()
	case types.StateToChrono:
		c.checkChrono()
	case types.StateFindLine:
		c.checkFindLine()
	case types.StateUpRamp:
		c.checkUpRamp()
	case types.StateToSeesaw:
		c.checkToSeesaw()
	case types.StateSeesaw:
		c.checkSeesaw()
	case types.StateToSiren:
		c.checkToSiren()
	default:
		c.lose("unknown mission state %q", c.state)
	}
}

// transition moves to the next top level state. prelude steps run before
// the entry action of next.
func (c *Controller) transition(next types.MissionState, prelude ...step) {
	now := c.now()
	c.notifyTransition("mission", string(c.state), string(next), now, now.Sub(c.stateSince))
	c.state = next
	c.stateSince = now
	c.resetSubStates()
	c.lineLost.SetThreshold(c.params.LineLostThreshold)
	c.enter(now, prelude)
}

// enterSub records a nested transition within the current top level state.
func (c *Controller) enterSub(from, to string, prelude []step) {
	now := c.now()
	c.notifyTransition(string(c.state), from, to, now, now.Sub(c.enteredAt))
	c.enter(now, prelude)
}

func (c *Controller) enter(now time.Time, prelude []step) {
	c.resetOdometry()
	steps, ok := c.entrySteps()
	if !ok {
		c.lose("no entry for %s/%s", c.state, c.subState())
		return
	}
	c.seq = newSequence(append(prelude, steps...))
	c.latched = true
	c.enteredAt = now
}

// perform runs a sequence without changing state. Guards stay suspended
// until it completes.
func (c *Controller) perform(steps ...step) {
	c.seq = newSequence(steps)
	c.latched = true
}

func (c *Controller) resetSubStates() {
	c.roundabout = types.RoundaboutTurnToWait
	c.axe = types.AxeGetNear
	c.door = types.DoorTravelDistance
	c.chrono = types.ChronoFirstStraight
}

// resetOdometry zeroes distance and heading and re-arms the intersection detector.
func (c *Controller) resetOdometry() {
	c.robot.Odometry.Reset()
	c.intersections.Reset()
	c.intersection = false
}

// consumeIntersection reports a pending intersection and re-arms the detector.
func (c *Controller) consumeIntersection() bool {
	if !c.intersection {
		return false
	}
	c.intersection = false
	c.intersections.Reset()
	return true
}

func (c *Controller) distance() float64 {
	return c.robot.Odometry.Distance()
}

// channel returns a distance reading, false when the channel is unavailable.
func (c *Controller) channel(i int) (float64, bool) {
	if !c.sensorsOK || i < 0 || i >= len(c.distances) {
		return 0, false
	}
	return c.distances[i], true
}

func (c *Controller) subState() string {
	switch c.state {
	case types.StateRoundabout:
		return string(c.roundabout)
	case types.StateAxe:
		return string(c.axe)
	case types.StateDoors:
		return string(c.door)
	case types.StateToChrono:
		return string(c.chrono)
	}
	return ""
}

func (c *Controller) lose(format string, v ...interface{}) {
	c.finish(types.OutcomeLost, fmt.Sprintf(format, v...))
}

// finish ends the run and leaves the robot stopped under automatic control.
func (c *Controller) finish(outcome types.Outcome, reason string) {
	if c.outcome != types.OutcomeNone {
		return
	}
	c.outcome = outcome
	c.latched = false
	c.robot.Mixer.SetManualControl(false, 0, 0)
	c.robot.Mixer.SetVelocity(0)
	c.robot.Mixer.SetTurnrate(0)
	if outcome == types.OutcomeFinished {
		c.log.Infof("Mission %s in %s: %s", outcome, c.state, reason)
	} else {
		c.log.Warnf("Mission %s in %s: %s", outcome, c.state, reason)
	}
	c.mlog.Log(string(c.state), "mission %s: %s", outcome, reason)
}

func (c *Controller) notifyTransition(machine, from, to string, now time.Time, elapsed time.Duration) {
	c.log.Infof("%s: %s -> %s after %.3fs", machine, from, to, elapsed.Seconds())
	c.mlog.Log(string(c.state), "%s -> %s (%.3fs)", from, to, elapsed.Seconds())
	if c.observer != nil {
		c.observer.Transition(Transition{
			Machine: machine,
			From:    from,
			To:      to,
			At:      now,
			Elapsed: elapsed,
		})
	}
}

func (c *Controller) notifyTick() {
	if c.observer != nil {
		c.observer.Tick(c.Status())
	}
}

// Status snapshots the controller. Call it from the mission goroutine only.
func (c *Controller) Status() Status {
	return Status{
		State:    c.state,
		Sub:      c.subState(),
		Latched:  c.latched,
		Outcome:  c.outcome,
		Distance: c.robot.Odometry.Distance(),
		Heading:  c.robot.Odometry.Heading(),
		Ticks:    c.ticks,
	}
}

func (c *Controller) State() types.MissionState {
	return c.state
}

func (c *Controller) Outcome() types.Outcome {
	return c.outcome
}
