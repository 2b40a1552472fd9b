package hardware

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetNiceness sets the scheduling priority of the whole process. Negative
// values need CAP_SYS_NICE; 0 leaves the priority untouched.
func SetNiceness(nice int) error {
	if nice == 0 {
		return nil
	}
	if !InRange(nice, -20, 19) {
		return fmt.Errorf("niceness %d out of range -20..19", nice)
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, nice); err != nil {
		return fmt.Errorf("setpriority %d: %w", nice, err)
	}
	return nil
}

func InRange(v, min, max int) bool {
	return v >= min && v <= max
}
