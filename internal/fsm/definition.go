package fsm

import (
	"github.com/librescoot/librefsm"
)

// NewDefinition creates the run lifecycle definition.
// Running is left only when the mission goroutine reports how the run
// ended; a stop request raises the stop flag and arrives here as aborted.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateIdle,
			librefsm.WithOnEnter(actions.EnterIdle),
		).
		State(StateRunning,
			librefsm.WithOnEnter(actions.EnterRunning),
		).
		State(StateFinished,
			librefsm.WithOnEnter(actions.EnterFinished),
		).
		State(StateLost,
			librefsm.WithOnEnter(actions.EnterLost),
		).
		State(StateAborted,
			librefsm.WithOnEnter(actions.EnterAborted),
		).

		// From Idle
		Transition(StateIdle, EvStart, StateRunning,
			librefsm.WithGuard(actions.CanStart),
		).

		// From Running
		Transition(StateRunning, EvFinished, StateFinished).
		Transition(StateRunning, EvLost, StateLost).
		Transition(StateRunning, EvAborted, StateAborted).

		// Terminal states wait for a reset
		Transition(StateFinished, EvReset, StateIdle).
		Transition(StateLost, EvReset, StateIdle).
		Transition(StateAborted, EvReset, StateIdle).

		Initial(StateIdle)
}
