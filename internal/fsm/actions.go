package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for lifecycle state machine actions.
// MissionService implements this interface to start and end runs.
type Actions interface {
	// State entry actions
	EnterIdle(c *librefsm.Context) error
	EnterRunning(c *librefsm.Context) error
	EnterFinished(c *librefsm.Context) error
	EnterLost(c *librefsm.Context) error
	EnterAborted(c *librefsm.Context) error

	// Guards
	CanStart(c *librefsm.Context) bool // True when no mission goroutine is alive
}
