package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"robobot-mission/internal/config"
	"robobot-mission/internal/logger"
)

type InputCallback func(channel string, value bool) error

// LinuxHardwareIO drives the start/stop buttons and the siren and status LED
// outputs through the GPIO character device. Lines with a negative offset in
// the configuration are not requested.
type LinuxHardwareIO struct {
	logger         *logger.Logger
	cfg            config.GPIOConfig
	chip           *gpiocdev.Chip
	lines          map[string]*gpiocdev.Line
	inputCallbacks map[string]InputCallback
	mu             sync.RWMutex
	pulses         sync.WaitGroup
}

func NewLinuxHardwareIO(cfg config.GPIOConfig, l *logger.Logger) *LinuxHardwareIO {
	return &LinuxHardwareIO{
		logger:         l.WithTag("hw"),
		cfg:            cfg,
		lines:          make(map[string]*gpiocdev.Line),
		inputCallbacks: make(map[string]InputCallback),
	}
}

// inputLines maps configured button channels to line offsets.
func inputLines(cfg config.GPIOConfig) map[string]int {
	return enabled(map[string]int{
		ChannelStartButton: cfg.StartButton,
		ChannelStopButton:  cfg.StopButton,
	})
}

// outputLines maps configured output channels to line offsets.
func outputLines(cfg config.GPIOConfig) map[string]int {
	return enabled(map[string]int{
		ChannelSiren:     cfg.Siren,
		ChannelStatusLED: cfg.StatusLED,
	})
}

func enabled(m map[string]int) map[string]int {
	for name, offset := range m {
		if offset < 0 {
			delete(m, name)
		}
	}
	return m
}

func (io *LinuxHardwareIO) Initialize() error {
	inputs := inputLines(io.cfg)
	outputs := outputLines(io.cfg)
	if len(inputs) == 0 && len(outputs) == 0 {
		io.logger.Infof("No GPIO lines configured")
		return nil
	}

	io.logger.Infof("Initializing hardware IO on %s", io.cfg.Chip)
	chip, err := gpiocdev.NewChip(io.cfg.Chip, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", io.cfg.Chip, err)
	}
	io.chip = chip

	// siren and status LED start off
	for name, offset := range outputs {
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d for %s: %w", offset, name, err)
		}
		io.lines[name] = line
		io.logger.Infof("Configured DO %s: line=%d", name, offset)
	}

	for name, offset := range inputs {
		channel := name
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.AsActiveLow,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(io.cfg.Debounce),
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				io.handleLineEvent(channel, evt)
			}))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d for %s: %w", offset, name, err)
		}
		io.lines[name] = line
		io.logger.Infof("Configured DI %s: line=%d debounce=%s", name, offset, io.cfg.Debounce)
	}
	return nil
}

func (io *LinuxHardwareIO) handleLineEvent(channel string, evt gpiocdev.LineEvent) {
	// Lines are active low, so a rising edge is a press
	io.dispatch(channel, evt.Type == gpiocdev.LineEventRisingEdge)
}

func (io *LinuxHardwareIO) dispatch(channel string, pressed bool) {
	io.logger.Debugf("Input %s=%v", channel, pressed)

	io.mu.RLock()
	callback, exists := io.inputCallbacks[channel]
	io.mu.RUnlock()

	if !exists {
		io.logger.Debugf("No callback registered for channel: %s", channel)
		return
	}
	if err := callback(channel, pressed); err != nil {
		io.logger.Warnf("Error in callback for %s: %v", channel, err)
	}
}

func (io *LinuxHardwareIO) RegisterInputCallback(channel string, callback InputCallback) {
	io.mu.Lock()
	defer io.mu.Unlock()
	io.inputCallbacks[channel] = callback
	io.logger.Debugf("Registered callback for channel: %s", channel)
}

func (io *LinuxHardwareIO) ReadDigitalInput(channel string) (bool, error) {
	io.mu.RLock()
	line, ok := io.lines[channel]
	io.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("unknown input channel: %s", channel)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read DI %s: %w", channel, err)
	}
	return v == 1, nil
}

// WriteDigitalOutput sets an output. Unconfigured channels are skipped so
// a robot without a siren or LED still runs.
func (io *LinuxHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	io.mu.RLock()
	line, ok := io.lines[channel]
	io.mu.RUnlock()

	if !ok {
		io.logger.Debugf("Output %s not configured, skipping", channel)
		return nil
	}

	val := 0
	if value {
		val = 1
	}
	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}
	io.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

// PulseOutput raises an output for d without blocking the caller.
func (io *LinuxHardwareIO) PulseOutput(channel string, d time.Duration) error {
	if err := io.WriteDigitalOutput(channel, true); err != nil {
		return err
	}
	io.pulses.Add(1)
	go func() {
		defer io.pulses.Done()
		time.Sleep(d)
		if err := io.WriteDigitalOutput(channel, false); err != nil {
			io.logger.Warnf("Failed to end %s pulse: %v", channel, err)
		}
	}()
	return nil
}

func (io *LinuxHardwareIO) Cleanup() {
	io.pulses.Wait()

	io.mu.Lock()
	defer io.mu.Unlock()

	io.logger.Infof("Cleaning up hardware resources")
	for name, line := range io.lines {
		line.Close()
		io.logger.Debugf("Closed GPIO line for %s", name)
	}
	io.lines = make(map[string]*gpiocdev.Line)

	if io.chip != nil {
		io.chip.Close()
		io.chip = nil
	}
	io.logger.Infof("Hardware cleanup complete")
}
