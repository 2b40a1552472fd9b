package mission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

const testTick = 10 * time.Millisecond

// fakeRobot implements every collaborator and records mixer commands.
type fakeRobot struct {
	edge    EdgeReading
	dists   []float64
	total   float64
	base    float64
	heading float64
	resets  int

	// turnInstantly makes SetDesiredHeading reach the target at once.
	turnInstantly bool

	calls       []string
	velocity    float64
	turnrate    float64
	manual      bool
	manualV     float64
	manualW     float64
	edgeLeft    bool
	edgeOffset  float64
	maxTurnrate float64
	profiles    []config.CalibrationProfile
}

func (f *fakeRobot) Edge() EdgeReading { return f.edge }

func (f *fakeRobot) SetCalibrationProfile(p config.CalibrationProfile) {
	f.profiles = append(f.profiles, p)
	f.record("calibrate %v", p)
}

func (f *fakeRobot) Distances() []float64 { return f.dists }

func (f *fakeRobot) Distance() float64 { return f.total - f.base }
func (f *fakeRobot) Heading() float64  { return f.heading }

func (f *fakeRobot) Reset() {
	f.base = f.total
	f.heading = 0
	f.resets++
}

func (f *fakeRobot) SetVelocity(v float64) {
	f.velocity = v
	f.record("vel %.2f", v)
}

func (f *fakeRobot) SetTurnrate(w float64) {
	f.turnrate = w
	f.record("tr %.2f", w)
}

func (f *fakeRobot) SetDesiredHeading(theta float64) {
	if f.turnInstantly {
		f.heading = theta
	}
	f.record("heading %.2f", theta)
}

func (f *fakeRobot) SetEdgeMode(useLeft bool, offset float64) {
	f.edgeLeft = useLeft
	f.edgeOffset = offset
	f.record("edge %t %.3f", useLeft, offset)
}

func (f *fakeRobot) SetManualControl(enabled bool, v, w float64) {
	f.manual = enabled
	f.manualV = v
	f.manualW = w
	f.record("manual %t %.2f %.2f", enabled, v, w)
}

func (f *fakeRobot) SetMaxTurnrate(limit float64) {
	f.maxTurnrate = limit
	f.record("maxtr %.2f", limit)
}

func (f *fakeRobot) record(format string, v ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, v...))
}

func (f *fakeRobot) count(prefix string) int {
	n := 0
	for _, call := range f.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeRobot) robot() Robot {
	return Robot{Edge: f, Distance: f, Odometry: f, Mixer: f}
}

// fakeStop raises the stop flag on the nth poll.
type fakeStop struct {
	after int
	polls int
}

func (s *fakeStop) Stopped() bool {
	s.polls++
	return s.after > 0 && s.polls >= s.after
}

type recorder struct {
	transitions []Transition
	last        Status
	ticks       int
}

func (r *recorder) Transition(tr Transition) { r.transitions = append(r.transitions, tr) }

func (r *recorder) Tick(s Status) {
	r.last = s
	r.ticks++
}

// path lists the destination states of one machine in order.
func (r *recorder) path(machine string) []string {
	var out []string
	for _, tr := range r.transitions {
		if tr.Machine == machine {
			out = append(out, tr.To)
		}
	}
	return out
}

func testParams() config.Parameters {
	return config.Parameters{
		ThresholdDistanceToStartDetection: 0.05,
		MinimumLineWidth:                  0.05,
		DefaultFollowLineMargin:           0.03,
		FollowLineSpeed:                   0.3,
		LineLostThreshold:                 3,
		TurnTolerance:                     0.05,
		BangBangTurnrate:                  0.8,

		AvoidRegbotMargin:    0.01,
		DistanceToRoundabout: 1.0,

		RegbotDistanceChannel:      0,
		MinimumDistanceToRegbot:    0.3,
		SecondsForRegbotToLeave:    2.0,
		RoundaboutReverseSpeed:     -0.1,
		RoundaboutReverseTime:      0.8,
		RoundaboutEnterSpeed:       0.25,
		RoundaboutApproachDistance: 0.4,
		RoundaboutTurnrateBias:     0.1,
		RoundaboutExitTurn:         2.6,

		AxeEntryTurn:         0.52,
		AxeDistanceChannel:   1,
		AxeApproachSpeed:     0.2,
		AxeApproachDistance:  0.5,
		MinimumDistanceToAxe: 0.3,
		FreeDistanceToAxe:    0.8,
		AxeCrossSpeed:        0.4,
		DistanceToCrossAxe:   1.0,
		AxeExitTurn:          -1.17,

		DoorApproachDistance:       0.6,
		DoorTurnToWall:             1.57,
		DoorWallSpeed:              0.15,
		DoorWallDistance:           0.2,
		DoorFrontChannel:           1,
		DoorSideChannel:            0,
		DoorAlignTurnrate:          0.4,
		DoorPerpendicularTolerance: 0.02,
		DoorBackoffSpeed:           -0.1,
		DoorBackoffTime:            0.5,
		DoorFirstDoorDistance:      0.8,
		DoorLineLostThreshold:      5,

		ChronoRampSpeeds:           []float64{0.3, 0.5, 0.7},
		ChronoRampStep:             0.25,
		ChronoProfileSwapDistance:  0.6,
		ChronoFirstStraightLength:  1.0,
		ChronoCurveMaxTurnrate:     3.0,
		ChronoStraightMaxTurnrate:  1.0,
		ChronoFirstCurveLength:     0.5,
		ChronoSecondStraightSpeed:  0.6,
		ChronoSecondStraightLength: 0.8,
		ChronoLineLostThreshold:    4,

		DistanceBefore180Turn: 2.0,
		SeesawMinDistance:     3.0,
		SeesawTurn:            3.14,
		SeesawAdvanceDist:     0.5,
		SeesawSpeed:           0.15,
		SirenTurn:             1.57,
		SirenFinalTurn:        -1.57,
	}
}

var testProfiles = map[string]config.CalibrationProfile{
	config.ProfileRacetrack: {1, 1, 1, 1, 1, 1, 1, 1},
	config.ProfileWood:      {2, 2, 2, 2, 2, 2, 2, 2},
	config.ProfileSiren:     {3, 3, 3, 3, 3, 3, 3, 3},
}

type harness struct {
	t     *testing.T
	robot *fakeRobot
	stop  *fakeStop
	obs   *recorder
	clock time.Time
	c     *Controller
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		robot: &fakeRobot{turnInstantly: true, edge: EdgeReading{Valid: true, Left: 0.01, Right: -0.01, Width: 0.02}},
		stop:  &fakeStop{},
		obs:   &recorder{},
		clock: time.Unix(1700000000, 0),
	}
	settings := Settings{
		Parameters: testParams(),
		Profiles:   testProfiles,
	}
	opts = append([]Option{
		WithClock(func() time.Time { return h.clock }),
		WithObserver(h.obs),
	}, opts...)
	h.c = NewController(h.robot.robot(), settings, h.stop, opts...)
	return h
}

// startIn places the controller at the entry of state, skipping the course
// before it.
func (h *harness) startIn(state types.MissionState) {
	h.c.started = true
	h.c.state = state
	h.c.stateSince = h.clock
	h.c.resetSubStates()
	h.c.enter(h.clock, nil)
}

func (h *harness) tick() types.Outcome {
	h.clock = h.clock.Add(testTick)
	return h.c.Tick(context.Background())
}

// tickUntil ticks until cond holds, failing the test after max ticks.
func (h *harness) tickUntil(max int, cond func() bool) {
	h.t.Helper()
	for i := 0; i < max; i++ {
		h.tick()
		if cond() {
			return
		}
	}
	h.t.Fatalf("condition not reached after %d ticks (state %s/%s)", max, h.c.state, h.c.subState())
}

// drive advances odometry by d and ticks once.
func (h *harness) drive(d float64) types.Outcome {
	h.robot.total += d
	return h.tick()
}

// crossIntersection drives over a wide stretch of line until the detector
// has fired and the state machine consumed it.
func (h *harness) crossIntersection() {
	h.t.Helper()
	h.robot.total += 0.1
	h.robot.edge.Width = 0.2
	for i := 0; i <= IntersectionDebounce; i++ {
		h.drive(0.01)
	}
	h.robot.edge.Width = 0.02
}

func (h *harness) inSub(sub string) func() bool {
	return func() bool { return h.c.subState() == sub }
}

func (h *harness) inState(state types.MissionState) func() bool {
	return func() bool { return h.c.state == state }
}

// driveUntil advances odometry by d per tick until cond holds.
func (h *harness) driveUntil(max int, d float64, cond func() bool) {
	h.t.Helper()
	for i := 0; i < max; i++ {
		h.drive(d)
		if cond() {
			return
		}
	}
	h.t.Fatalf("condition not reached after %d ticks (state %s/%s)", max, h.c.state, h.c.subState())
}

// enterSubState places the controller at the entry of a nested state.
func (h *harness) enterSubState(state types.MissionState, set func()) {
	h.startIn(state)
	set()
	h.c.enter(h.clock, nil)
}
