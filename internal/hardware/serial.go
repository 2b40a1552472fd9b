package hardware

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"golang.org/x/time/rate"

	"robobot-mission/internal/logger"
)

// SerialMixer sends mixer commands straight to the Teensy motor controller
// as newline-terminated "key=value" lines. It satisfies the mission Mixer.
type SerialMixer struct {
	port      io.WriteCloser
	logger    *logger.Logger
	warnLimit *rate.Limiter
	mu        sync.Mutex
}

// OpenSerialMixer opens the serial device at baud (8N1).
func OpenSerialMixer(name string, baud int, l *logger.Logger) (*SerialMixer, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	l.WithTag("hw").Infof("Opened Teensy link on %s at %d baud", name, baud)
	return NewSerialMixer(port, l), nil
}

func NewSerialMixer(port io.WriteCloser, l *logger.Logger) *SerialMixer {
	return &SerialMixer{
		port:      port,
		logger:    l.WithTag("hw"),
		warnLimit: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (m *SerialMixer) SetVelocity(v float64) {
	m.send("vel=%.4f", v)
}

func (m *SerialMixer) SetTurnrate(w float64) {
	m.send("tr=%.4f", w)
}

func (m *SerialMixer) SetDesiredHeading(theta float64) {
	m.send("head=%.4f", theta)
}

func (m *SerialMixer) SetEdgeMode(useLeft bool, offset float64) {
	side := "r"
	if useLeft {
		side = "l"
	}
	m.send("edge=%s,%.4f", side, offset)
}

func (m *SerialMixer) SetManualControl(enabled bool, v, w float64) {
	flag := 0
	if enabled {
		flag = 1
	}
	m.send("manual=%d,%.4f,%.4f", flag, v, w)
}

func (m *SerialMixer) SetMaxTurnrate(limit float64) {
	m.send("maxtr=%.4f", limit)
}

func (m *SerialMixer) send(format string, v ...interface{}) {
	line := fmt.Sprintf(format, v...) + "\n"

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := io.WriteString(m.port, line); err != nil {
		if m.warnLimit.Allow() {
			m.logger.Warnf("Teensy write failed: %v", err)
		}
		return
	}
	m.logger.Debugf("Teensy <- %s", line[:len(line)-1])
}

func (m *SerialMixer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port.Close()
}
