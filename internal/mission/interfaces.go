// File: internal/mission/interfaces.go
package mission

import (
	"context"
	"time"

	"robobot-mission/internal/config"
	"robobot-mission/internal/types"
)

// EdgeReading is one sample of the line edge sensor. Left and Right are
// signed lateral offsets in metres, Width is the measured line width.
type EdgeReading struct {
	Valid bool
	Left  float64
	Right float64
	Width float64
}

type EdgeSensor interface {
	Edge() EdgeReading
	SetCalibrationProfile(profile config.CalibrationProfile)
}

// DistanceSensor reports the point distance channels in metres, smaller is closer.
type DistanceSensor interface {
	Distances() []float64
}

// Odometry reports distance and heading since the last Reset.
type Odometry interface {
	Distance() float64
	Heading() float64
	Reset()
}

// Mixer closes the low level control loop. Calls are fire and forget.
type Mixer interface {
	SetVelocity(v float64)
	SetTurnrate(w float64)
	SetDesiredHeading(theta float64)
	SetEdgeMode(useLeft bool, offset float64)
	SetManualControl(enabled bool, v, w float64)
	SetMaxTurnrate(limit float64)
}

// StopFlag is the process wide stop signal, polled once per tick.
type StopFlag interface {
	Stopped() bool
}

// Sampler refreshes sensor readings. It is called at the top of every tick
// when the robot collaborators are backed by a transport.
type Sampler interface {
	Sample(ctx context.Context) error
}

// Robot bundles the collaborators the controller drives.
type Robot struct {
	Edge     EdgeSensor
	Distance DistanceSensor
	Odometry Odometry
	Mixer    Mixer
}

// Transition describes one state change, top level or nested.
type Transition struct {
	Machine string // "mission" or the parent state of a nested machine
	From    string
	To      string
	At      time.Time
	Elapsed time.Duration // time spent in From
}

// Status is a snapshot of the controller after a tick.
type Status struct {
	State    types.MissionState
	Sub      string
	Latched  bool
	Outcome  types.Outcome
	Distance float64
	Heading  float64
	Ticks    uint64
}

// Observer receives transitions and per tick status. Calls happen on the
// mission goroutine and must not block.
type Observer interface {
	Transition(tr Transition)
	Tick(status Status)
}
