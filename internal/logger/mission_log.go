package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const missionLogName = "log_mission.txt"

// MissionLog is the per-run text log of state changes and mission status.
// Lines look like "1718000000.1234 roundabout % turn-to-wait -> wait-for-arrival".
// Writing is best effort; a failed write is reported once on the console.
type MissionLog struct {
	mu        sync.Mutex
	w         io.WriteCloser
	console   *Logger
	toConsole bool
	failed    bool
	now       func() time.Time
}

// OpenMissionLog creates <dir>/log_mission.txt when toFile is set and writes
// the column header. With toFile unset only console mirroring is done.
func OpenMissionLog(dir string, toFile, toConsole bool, console *Logger) (*MissionLog, error) {
	ml := &MissionLog{
		console:   console,
		toConsole: toConsole,
		now:       time.Now,
	}
	if !toFile {
		return ml, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, missionLogName))
	if err != nil {
		return nil, fmt.Errorf("failed to open mission log: %w", err)
	}
	ml.w = f
	ml.writeHeader()
	return ml, nil
}

// NewMissionLogWriter logs to an arbitrary writer, used by tests.
func NewMissionLogWriter(w io.WriteCloser, now func() time.Time) *MissionLog {
	ml := &MissionLog{w: w, now: now}
	ml.writeHeader()
	return ml
}

func (m *MissionLog) writeHeader() {
	fmt.Fprintf(m.w, "%% Mission robobot logfile\n")
	fmt.Fprintf(m.w, "%% 1 \tTime (sec)\n")
	fmt.Fprintf(m.w, "%% 2 \tMission state\n")
	fmt.Fprintf(m.w, "%% 3 \t%% Mission status (mostly for debug)\n")
}

// Log writes one timestamped line tagged with the current state.
func (m *MissionLog) Log(state string, format string, v ...interface{}) {
	if m == nil {
		return
	}
	msg := fmt.Sprintf(format, v...)
	t := m.now()
	line := fmt.Sprintf("%d.%04d %s %% %s", t.Unix(), t.Nanosecond()/100000, state, msg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w != nil && !m.failed {
		if _, err := fmt.Fprintln(m.w, line); err != nil {
			m.failed = true
			if m.console != nil {
				m.console.Warnf("Mission log write failed, file logging disabled: %v", err)
			}
		}
	}
	if m.toConsole && m.console != nil {
		m.console.Infof("%s", line)
	}
}

func (m *MissionLog) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return nil
	}
	err := m.w.Close()
	m.w = nil
	return err
}
