// File: internal/core/service.go
package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/librescoot/librefsm"
	"golang.org/x/time/rate"

	"robobot-mission/internal/config"
	"robobot-mission/internal/fsm"
	"robobot-mission/internal/hardware"
	"robobot-mission/internal/logger"
	"robobot-mission/internal/messaging"
	"robobot-mission/internal/mission"
	"robobot-mission/internal/telemetry"
	"robobot-mission/internal/types"
)

// statusRate caps routine status publishing; lifecycle changes bypass it.
const statusRate = 20

// stopFlag is raised by signals, buttons and Redis and polled by the
// mission goroutine once per tick.
type stopFlag struct {
	atomic.Bool
}

func (f *stopFlag) Stopped() bool {
	return f.Load()
}

type MissionService struct {
	cfg      *config.Config
	settings mission.Settings
	logger   *logger.Logger
	redis    MessagingClient
	io       HardwareIO
	robot    mission.Robot
	sampler  mission.Sampler
	metrics  *telemetry.Metrics
	machine  *librefsm.Machine
	closers  []Closer

	stop         stopFlag
	publishLimit *rate.Limiter
	// statusQueue hands tick snapshots to the publisher goroutine. It holds
	// one entry; snapshots arriving while it is full are dropped.
	statusQueue chan types.MissionStatus
	publisher   sync.WaitGroup

	// extra controller options, used by tests to inject a clock
	controllerOpts []mission.Option

	mu         sync.RWMutex
	status     types.MissionStatus
	running    bool
	runStarted time.Time
	runDone    chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewMissionService wires the Redis client, the Redis robot bridge and the
// GPIO lines described by cfg. Nothing is opened until Start.
func NewMissionService(cfg *config.Config, l *logger.Logger) *MissionService {
	redisClient := messaging.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB, l, messaging.Callbacks{})
	bridge := messaging.NewRobotBridge(redisClient.Client(), l)

	return newMissionService(cfg, l, redisClient, hardware.NewLinuxHardwareIO(cfg.GPIO, l),
		mission.Robot{Edge: bridge, Distance: bridge, Odometry: bridge, Mixer: bridge}, bridge)
}

func newMissionService(cfg *config.Config, l *logger.Logger, redis MessagingClient, io HardwareIO,
	robot mission.Robot, sampler mission.Sampler) *MissionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MissionService{
		cfg:          cfg,
		settings:     mission.SettingsFromConfig(cfg),
		logger:       l.WithTag("service"),
		redis:        redis,
		io:           io,
		robot:        robot,
		sampler:      sampler,
		metrics:      telemetry.NewMetrics(),
		publishLimit: rate.NewLimiter(rate.Limit(statusRate), 1),
		statusQueue:  make(chan types.MissionStatus, 1),
		status:       types.MissionStatus{Lifecycle: types.LifecycleIdle},
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *MissionService) Metrics() *telemetry.Metrics {
	return s.metrics
}

func (s *MissionService) Start() error {
	s.logger.Infof("Starting mission service")

	s.redis.SetCallbacks(messaging.Callbacks{
		CommandCallback: s.handleCommand,
	})
	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// A run never survives a restart; report what the last one ended as
	last, err := s.redis.GetHashField(messaging.StatusHash, "lifecycle")
	if err != nil {
		s.logger.Warnf("Failed to read previous lifecycle: %v", err)
	} else if last != "" {
		s.logger.Infof("Previous service instance ended in %s", last)
	}

	if s.cfg.Robot.Mixer == config.MixerSerial {
		mixer, err := hardware.OpenSerialMixer(s.cfg.Robot.SerialPort, s.cfg.Robot.SerialBaud, s.logger)
		if err != nil {
			return err
		}
		s.robot.Mixer = mixer
		s.closers = append(s.closers, mixer)
	}

	if err := s.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}
	s.io.RegisterInputCallback(hardware.ChannelStartButton, s.handleButton)
	s.io.RegisterInputCallback(hardware.ChannelStopButton, s.handleButton)

	s.publisher.Add(1)
	go s.publishLoop()

	if err := s.initFSM(s.ctx); err != nil {
		return fmt.Errorf("failed to start lifecycle machine: %w", err)
	}

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	if s.cfg.Mission.Run {
		s.logger.Infof("Auto-starting mission")
		s.machine.Send(librefsm.Event{ID: fsm.EvStart})
	}

	s.logger.Infof("Mission service started")
	return nil
}

// RequestStop raises the stop flag. The running mission ends as aborted on
// its next tick; with no run in progress nothing happens.
func (s *MissionService) RequestStop() {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		s.logger.Debugf("Stop requested with no run in progress")
		return
	}
	s.logger.Infof("Stop requested")
	s.stop.Store(true)
}

// Shutdown stops any run, waits for the mission goroutine and releases the
// transport and hardware.
func (s *MissionService) Shutdown() {
	s.RequestStop()

	s.mu.RLock()
	done := s.runDone
	s.mu.RUnlock()
	if done != nil {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.logger.Warnf("Timeout waiting for the mission run to end")
		}
	}

	s.cancel()
	s.publisher.Wait()
	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis client: %v", err)
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warnf("Failed to close robot link: %v", err)
		}
	}
	s.io.Cleanup()
}

// Status returns the last published snapshot.
func (s *MissionService) Status() types.MissionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// publishStatus sends the current snapshot to Redis and waits for it.
// Used for lifecycle changes, which are never throttled.
func (s *MissionService) publishStatus(field string) {
	s.publish(s.Status(), field)
}

// queueStatus offers the snapshot to the publisher goroutine without
// blocking. The mission goroutine calls it every tick.
func (s *MissionService) queueStatus() {
	if !s.publishLimit.Allow() {
		return
	}
	select {
	case s.statusQueue <- s.Status():
	default:
	}
}

func (s *MissionService) publishLoop() {
	defer s.publisher.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case status := <-s.statusQueue:
			s.publish(status, "state")
		}
	}
}

func (s *MissionService) publish(status types.MissionStatus, field string) {
	if err := s.redis.PublishMissionStatus(status, field); err != nil {
		s.logger.Debugf("Status publish failed: %v", err)
	}
}
