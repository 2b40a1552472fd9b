package fsm

import "github.com/librescoot/librefsm"

// Lifecycle states
const (
	StateIdle     librefsm.StateID = "idle"
	StateRunning  librefsm.StateID = "running"
	StateFinished librefsm.StateID = "finished"
	StateLost     librefsm.StateID = "lost"
	StateAborted  librefsm.StateID = "aborted"
)

// Lifecycle events
const (
	// External commands (from Redis, buttons or auto-start).
	// Stop has no event: it raises the stop flag and the run ends as aborted.
	EvStart librefsm.EventID = "start"
	EvReset librefsm.EventID = "reset"

	// Posted by the mission goroutine when a run ends
	EvFinished librefsm.EventID = "finished"
	EvLost     librefsm.EventID = "lost"
	EvAborted  librefsm.EventID = "aborted"
)
