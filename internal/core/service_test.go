package core

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robobot-mission/internal/config"
	"robobot-mission/internal/fsm"
	"robobot-mission/internal/hardware"
	"robobot-mission/internal/logger"
	"robobot-mission/internal/messaging"
	"robobot-mission/internal/mission"
	"robobot-mission/internal/types"
)

type mockMessaging struct {
	mu         sync.Mutex
	callbacks  messaging.Callbacks
	published  []types.MissionStatus
	fields     []string
	connectErr error
	closed     bool
	// stall, when set, holds every "state" publish until it is closed
	stall      chan struct{}
}

func (m *mockMessaging) SetCallbacks(cb messaging.Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

func (m *mockMessaging) Connect() error        { return m.connectErr }
func (m *mockMessaging) StartListening() error { return nil }

func (m *mockMessaging) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockMessaging) PublishMissionStatus(status types.MissionStatus, field string) error {
	m.mu.Lock()
	stall := m.stall
	m.mu.Unlock()
	if stall != nil && field == "state" {
		<-stall
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, status)
	m.fields = append(m.fields, field)
	return nil
}

func (m *mockMessaging) GetHashField(hash, field string) (string, error) {
	return "", nil
}

func (m *mockMessaging) command(cmd string) error {
	m.mu.Lock()
	cb := m.callbacks.CommandCallback
	m.mu.Unlock()
	return cb(cmd)
}

// lifecycles returns the lifecycle of every status published with the
// "lifecycle" field, in order.
func (m *mockMessaging) lifecycles() []types.LifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.LifecycleState
	for i, f := range m.fields {
		if f == "lifecycle" {
			out = append(out, m.published[i].Lifecycle)
		}
	}
	return out
}

type mockHardware struct {
	mu        sync.Mutex
	outputs   map[string]bool
	pulses    map[string]time.Duration
	callbacks map[string]hardware.InputCallback
	cleaned   bool
}

func newMockHardware() *mockHardware {
	return &mockHardware{
		outputs:   make(map[string]bool),
		pulses:    make(map[string]time.Duration),
		callbacks: make(map[string]hardware.InputCallback),
	}
}

func (m *mockHardware) Initialize() error { return nil }

func (m *mockHardware) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaned = true
}

func (m *mockHardware) WriteDigitalOutput(channel string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[channel] = value
	return nil
}

func (m *mockHardware) PulseOutput(channel string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pulses[channel] = d
	return nil
}

func (m *mockHardware) RegisterInputCallback(channel string, cb hardware.InputCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[channel] = cb
}

func (m *mockHardware) output(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs[channel]
}

func (m *mockHardware) press(channel string) error {
	m.mu.Lock()
	cb := m.callbacks[channel]
	m.mu.Unlock()
	return cb(channel, true)
}

// stillRobot sits on a clean line and never moves.
type stillRobot struct {
	edge mission.EdgeReading
}

func (r *stillRobot) Edge() mission.EdgeReading { return r.edge }

func (r *stillRobot) SetCalibrationProfile(config.CalibrationProfile) {}
func (r *stillRobot) Distances() []float64                           { return []float64{2, 2} }
func (r *stillRobot) Distance() float64                              { return 0 }
func (r *stillRobot) Heading() float64                               { return 0 }
func (r *stillRobot) Reset()                                         {}
func (r *stillRobot) SetVelocity(float64)                            {}
func (r *stillRobot) SetTurnrate(float64)                            {}
func (r *stillRobot) SetDesiredHeading(float64)                      {}
func (r *stillRobot) SetEdgeMode(bool, float64)                      {}
func (r *stillRobot) SetManualControl(bool, float64, float64)        {}
func (r *stillRobot) SetMaxTurnrate(float64)                         {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	content, err := os.ReadFile("../../configs/robobot.yaml")
	require.NoError(t, err)
	cfg, err := config.LoadBytes(content)
	require.NoError(t, err)

	cfg.Mission.Run = false
	cfg.Mission.Log = false
	cfg.Mission.Print = false
	cfg.Mission.TickInterval = time.Millisecond
	cfg.Mission.SettleTime = 0
	return cfg
}

func newTestService(t *testing.T) (*MissionService, *mockMessaging, *mockHardware) {
	t.Helper()
	robot := &stillRobot{edge: mission.EdgeReading{Valid: true, Left: -0.01, Right: 0.01, Width: 0.02}}
	msg := &mockMessaging{}
	hw := newMockHardware()

	s := newMissionService(testConfig(t), logger.Nop(), msg, hw,
		mission.Robot{Edge: robot, Distance: robot, Odometry: robot, Mixer: robot}, nil)
	require.NoError(t, s.Start())
	t.Cleanup(s.Shutdown)
	return s, msg, hw
}

func lifecycleIs(s *MissionService, want types.LifecycleState) func() bool {
	return func() bool { return s.Status().Lifecycle == want }
}

const waitFor = 2 * time.Second

func TestServiceStartsIdle(t *testing.T) {
	s, msg, _ := newTestService(t)

	assert.Eventually(t, lifecycleIs(s, types.LifecycleIdle), waitFor, time.Millisecond)
	assert.Contains(t, msg.lifecycles(), types.LifecycleIdle)
	assert.Equal(t, fsm.StateIdle, s.machine.CurrentState())
}

func TestServiceStopAbortsRun(t *testing.T) {
	s, msg, hw := newTestService(t)

	require.NoError(t, msg.command("start"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)
	runID := s.Status().RunID
	assert.NotEmpty(t, runID)

	require.Eventually(t, func() bool { return s.Status().Ticks > 3 }, waitFor, time.Millisecond)

	require.NoError(t, msg.command("stop"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleAborted), waitFor, time.Millisecond)
	assert.Equal(t, types.OutcomeAborted, s.Status().Outcome)
	assert.Equal(t, runID, s.Status().RunID)
	assert.True(t, hw.output(hardware.ChannelStatusLED))

	require.NoError(t, msg.command("reset"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleIdle), waitFor, time.Millisecond)
	assert.False(t, hw.output(hardware.ChannelStatusLED))
	assert.Empty(t, s.Status().RunID)

	assert.Equal(t, []types.LifecycleState{
		types.LifecycleIdle,
		types.LifecycleRunning,
		types.LifecycleAborted,
		types.LifecycleIdle,
	}, dedupe(msg.lifecycles()))
}

func TestServiceStartButton(t *testing.T) {
	s, _, hw := newTestService(t)

	require.NoError(t, hw.press(hardware.ChannelStartButton))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)
	require.Eventually(t, func() bool { return s.Status().State == types.StateStartToFirstIntersection && s.Status().Ticks > 0 },
		waitFor, time.Millisecond)
}

func TestServiceSlowRedisDoesNotStallTicks(t *testing.T) {
	s, msg, _ := newTestService(t)
	stall := make(chan struct{})
	msg.mu.Lock()
	msg.stall = stall
	msg.mu.Unlock()
	t.Cleanup(func() { close(stall) })

	require.NoError(t, msg.command("start"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)
	assert.Eventually(t, func() bool { return s.Status().Ticks > 100 }, waitFor, time.Millisecond)
}

func TestServiceLostLightsStatusLED(t *testing.T) {
	s, _, hw := newTestService(t)
	require.NoError(t, s.EnterLost(nil))
	assert.True(t, hw.output(hardware.ChannelStatusLED))
	require.NoError(t, s.EnterIdle(nil))
	assert.False(t, hw.output(hardware.ChannelStatusLED))
}

func TestServiceStartWhileRunningKeepsRun(t *testing.T) {
	s, msg, hw := newTestService(t)

	require.NoError(t, msg.command("start"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)
	runID := s.Status().RunID

	require.NoError(t, msg.command("start"))
	require.NoError(t, msg.command("reset"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, types.LifecycleRunning, s.Status().Lifecycle)
	assert.Equal(t, runID, s.Status().RunID)

	require.NoError(t, hw.press(hardware.ChannelStopButton))
	require.Eventually(t, lifecycleIs(s, types.LifecycleAborted), waitFor, time.Millisecond)
}

func TestServiceStopWhenIdleIsIgnored(t *testing.T) {
	s, msg, _ := newTestService(t)

	require.NoError(t, msg.command("stop"))
	assert.False(t, s.stop.Stopped())

	require.NoError(t, msg.command("start"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, types.LifecycleRunning, s.Status().Lifecycle)
}

func TestServiceInvalidCommand(t *testing.T) {
	_, msg, _ := newTestService(t)
	assert.Error(t, msg.command("launch"))
}

func TestServiceButtonRelease(t *testing.T) {
	s, _, _ := newTestService(t)
	assert.NoError(t, s.handleButton(hardware.ChannelStartButton, false))
	assert.Error(t, s.handleButton("horn", true))
	assert.Equal(t, types.LifecycleIdle, s.Status().Lifecycle)
}

func TestServiceFinishedSoundsSiren(t *testing.T) {
	s, _, hw := newTestService(t)
	require.NoError(t, s.EnterFinished(nil))

	hw.mu.Lock()
	defer hw.mu.Unlock()
	assert.Equal(t, hardware.SirenPulse, hw.pulses[hardware.ChannelSiren])
}

func TestServiceShutdownEndsRun(t *testing.T) {
	s, msg, hw := newTestService(t)

	require.NoError(t, msg.command("start"))
	require.Eventually(t, lifecycleIs(s, types.LifecycleRunning), waitFor, time.Millisecond)

	s.Shutdown()

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	assert.False(t, running)

	msg.mu.Lock()
	assert.True(t, msg.closed)
	msg.mu.Unlock()
	hw.mu.Lock()
	assert.True(t, hw.cleaned)
	hw.mu.Unlock()
}

func TestServiceConnectFailure(t *testing.T) {
	robot := &stillRobot{}
	msg := &mockMessaging{connectErr: errors.New("connection refused")}
	s := newMissionService(testConfig(t), logger.Nop(), msg, newMockHardware(),
		mission.Robot{Edge: robot, Distance: robot, Odometry: robot, Mixer: robot}, nil)
	assert.Error(t, s.Start())
}

func TestOutcomeEvent(t *testing.T) {
	assert.Equal(t, fsm.EvFinished, outcomeEvent(types.OutcomeFinished))
	assert.Equal(t, fsm.EvLost, outcomeEvent(types.OutcomeLost))
	assert.Equal(t, fsm.EvAborted, outcomeEvent(types.OutcomeAborted))
	assert.Equal(t, fsm.EvAborted, outcomeEvent(types.OutcomeNone))
}

func TestStateIDToLifecycle(t *testing.T) {
	assert.Equal(t, types.LifecycleIdle, stateIDToLifecycle(fsm.StateIdle))
	assert.Equal(t, types.LifecycleRunning, stateIDToLifecycle(fsm.StateRunning))
	assert.Equal(t, types.LifecycleFinished, stateIDToLifecycle(fsm.StateFinished))
	assert.Equal(t, types.LifecycleLost, stateIDToLifecycle(fsm.StateLost))
	assert.Equal(t, types.LifecycleAborted, stateIDToLifecycle(fsm.StateAborted))
}

func dedupe(in []types.LifecycleState) []types.LifecycleState {
	var out []types.LifecycleState
	for _, l := range in {
		if len(out) == 0 || out[len(out)-1] != l {
			out = append(out, l)
		}
	}
	return out
}
