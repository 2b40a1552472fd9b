package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/librescoot/librefsm"

	"robobot-mission/internal/fsm"
	"robobot-mission/internal/hardware"
	"robobot-mission/internal/logger"
	"robobot-mission/internal/mission"
	"robobot-mission/internal/types"
)

// Ensure MissionService implements fsm.Actions
var _ fsm.Actions = (*MissionService)(nil)

// stateIDToLifecycle converts librefsm StateID to types.LifecycleState
func stateIDToLifecycle(id librefsm.StateID) types.LifecycleState {
	switch id {
	case fsm.StateIdle:
		return types.LifecycleIdle
	case fsm.StateRunning:
		return types.LifecycleRunning
	case fsm.StateFinished:
		return types.LifecycleFinished
	case fsm.StateLost:
		return types.LifecycleLost
	case fsm.StateAborted:
		return types.LifecycleAborted
	default:
		return types.LifecycleState(string(id))
	}
}

// outcomeEvent maps how a run ended to the event that leaves running.
func outcomeEvent(outcome types.Outcome) librefsm.EventID {
	switch outcome {
	case types.OutcomeFinished:
		return fsm.EvFinished
	case types.OutcomeLost:
		return fsm.EvLost
	default:
		return fsm.EvAborted
	}
}

// initFSM initializes and starts the librefsm machine
func (s *MissionService) initFSM(ctx context.Context) error {
	machine, err := fsm.NewDefinition(s).Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		lifecycle := stateIDToLifecycle(to)

		s.mu.Lock()
		s.status.Lifecycle = lifecycle
		s.status.Timestamp = time.Now()
		s.mu.Unlock()

		s.metrics.SetLifecycle(lifecycle)
		s.logger.Infof("Lifecycle transition: %s -> %s", from, to)
		s.publishStatus("lifecycle")
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.metrics.SetLifecycle(types.LifecycleIdle)
	s.publishStatus("lifecycle")
	s.logger.Infof("librefsm lifecycle machine started")
	return nil
}

// sendEvent posts an event without waiting. Entry actions start goroutines
// that post events back, so nothing here blocks on the machine.
func (s *MissionService) sendEvent(event librefsm.EventID) {
	if s.machine == nil {
		s.logger.Warnf("Lifecycle machine not started, dropping %s", event)
		return
	}
	s.machine.Send(librefsm.Event{ID: event})
}

// === State Entry Actions ===

func (s *MissionService) EnterIdle(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterIdle")
	s.mu.Lock()
	s.status = types.MissionStatus{Lifecycle: types.LifecycleIdle, Timestamp: time.Now()}
	s.mu.Unlock()

	if err := s.io.WriteDigitalOutput(hardware.ChannelStatusLED, false); err != nil {
		s.logger.Warnf("Failed to clear status LED: %v", err)
	}
	return nil
}

func (s *MissionService) EnterRunning(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterRunning")
	s.startRun()
	return nil
}

func (s *MissionService) EnterFinished(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterFinished")
	if err := s.io.PulseOutput(hardware.ChannelSiren, hardware.SirenPulse); err != nil {
		s.logger.Warnf("Failed to sound siren: %v", err)
	}
	return nil
}

func (s *MissionService) EnterLost(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterLost")
	return s.lightStatusLED()
}

func (s *MissionService) EnterAborted(c *librefsm.Context) error {
	s.logger.Debugf("FSM: EnterAborted")
	return s.lightStatusLED()
}

func (s *MissionService) lightStatusLED() error {
	if err := s.io.WriteDigitalOutput(hardware.ChannelStatusLED, true); err != nil {
		s.logger.Warnf("Failed to set status LED: %v", err)
	}
	return nil
}

// === Guards ===

func (s *MissionService) CanStart(c *librefsm.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.running
}

// === Mission run ===

// startRun clears the stop flag and starts a fresh Controller on its own
// goroutine. That goroutine is the only one touching the robot until the
// run ends.
func (s *MissionService) startRun() {
	runID := uuid.NewString()

	mlog, err := logger.OpenMissionLog(s.cfg.Mission.LogDir, s.cfg.Mission.Log, s.cfg.Mission.Print, s.logger)
	if err != nil {
		s.logger.Warnf("Mission log unavailable, continuing without it: %v", err)
		mlog = nil
	}

	s.stop.Store(false)
	done := make(chan struct{})
	now := time.Now()

	s.mu.Lock()
	s.running = true
	s.runDone = done
	s.runStarted = now
	s.status = types.MissionStatus{
		Lifecycle: types.LifecycleRunning,
		RunID:     runID,
		State:     types.StateStartToFirstIntersection,
		Timestamp: now,
	}
	s.mu.Unlock()

	opts := []mission.Option{
		mission.WithLogger(s.logger),
		mission.WithMissionLog(mlog),
		mission.WithObserver(&runObserver{s: s}),
	}
	if s.sampler != nil {
		opts = append(opts, mission.WithSampler(s.sampler))
	}
	opts = append(opts, s.controllerOpts...)
	ctrl := mission.NewController(s.robot, s.settings, &s.stop, opts...)

	s.logger.Infof("Mission run %s started", runID)
	go s.runMission(runID, ctrl, mlog, done)
}

func (s *MissionService) runMission(runID string, ctrl *mission.Controller, mlog *logger.MissionLog, done chan struct{}) {
	defer close(done)

	outcome := ctrl.Run(s.ctx)
	if err := mlog.Close(); err != nil {
		s.logger.Warnf("Failed to close mission log: %v", err)
	}

	s.mu.Lock()
	s.running = false
	s.status.Outcome = outcome
	started := s.runStarted
	s.mu.Unlock()

	elapsed := time.Since(started)
	s.metrics.ObserveRun(outcome, elapsed)
	s.logger.Infof("Mission run %s ended %s after %.1fs", runID, outcome, elapsed.Seconds())
	s.sendEvent(outcomeEvent(outcome))
}

// runObserver feeds controller progress into the status snapshot and metrics.
type runObserver struct {
	s *MissionService
}

func (o *runObserver) Transition(tr mission.Transition) {
	o.s.metrics.ObserveTransition(tr.Machine, tr.To)
}

func (o *runObserver) Tick(st mission.Status) {
	s := o.s
	s.metrics.ObserveTick()

	s.mu.Lock()
	s.status.State = st.State
	s.status.Sub = st.Sub
	s.status.Outcome = st.Outcome
	s.status.Distance = st.Distance
	s.status.Heading = st.Heading
	s.status.Ticks = st.Ticks
	s.status.Timestamp = time.Now()
	s.mu.Unlock()

	s.queueStatus()
}
