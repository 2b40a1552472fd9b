package types

import "time"

// MissionState is the top-level course segment the robot is working on.
type MissionState string

const (
	StateStartToFirstIntersection MissionState = "start-to-first-intersection"
	StateToRoundabout             MissionState = "to-roundabout"
	StateRoundabout               MissionState = "roundabout"
	StateToAxe                    MissionState = "to-axe"
	StateAxe                      MissionState = "axe"
	StateDoors                    MissionState = "doors"
	StateToChrono                 MissionState = "to-chrono"
	StateFindLine                 MissionState = "find-line"
	StateUpRamp                   MissionState = "up-ramp"
	StateToSeesaw                 MissionState = "to-seesaw"
	StateSeesaw                   MissionState = "seesaw"
	StateToSiren                  MissionState = "to-siren"
)

type RoundaboutState string

const (
	RoundaboutTurnToWait       RoundaboutState = "turn-to-wait"
	RoundaboutWaitForArrival   RoundaboutState = "wait-for-arrival"
	RoundaboutWaitForDeparture RoundaboutState = "wait-for-departure"
	RoundaboutEnter            RoundaboutState = "enter-roundabout"
	RoundaboutFollowLine       RoundaboutState = "follow-line"
	RoundaboutExit             RoundaboutState = "exit-roundabout"
)

type AxeState string

const (
	AxeGetNear        AxeState = "get-near"
	AxeWaitForAxe     AxeState = "wait-for-axe"
	AxeWaitForFree    AxeState = "wait-for-free"
	AxeCross          AxeState = "cross"
	AxeToIntersection AxeState = "to-intersection"
)

type DoorState string

const (
	DoorTravelDistance      DoorState = "travel-distance"
	DoorTurnToWall          DoorState = "turn-to-wall"
	DoorToWall              DoorState = "to-wall"
	DoorPerpendicularToWall DoorState = "perpendicular-to-wall"
	DoorGetCloseToWall      DoorState = "get-close-to-wall"
	DoorFirstDoor           DoorState = "first-door"
	DoorGetToIntersection   DoorState = "get-to-intersection"
	DoorSecondDoor          DoorState = "second-door"
)

type ChronoState string

const (
	ChronoFirstStraight  ChronoState = "first-straight"
	ChronoFirstCurve     ChronoState = "first-curve"
	ChronoSecondStraight ChronoState = "second-straight"
	ChronoSecondCurve    ChronoState = "second-curve"
)

// Outcome is how a mission run ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeFinished Outcome = "finished"
	OutcomeLost     Outcome = "lost"
	OutcomeAborted  Outcome = "aborted"
)

// LifecycleState is the externally visible state of the mission service.
type LifecycleState string

const (
	LifecycleIdle     LifecycleState = "idle"
	LifecycleRunning  LifecycleState = "running"
	LifecycleFinished LifecycleState = "finished"
	LifecycleLost     LifecycleState = "lost"
	LifecycleAborted  LifecycleState = "aborted"
)

// MissionStatus is the snapshot published to Redis and served over HTTP.
type MissionStatus struct {
	Lifecycle LifecycleState `json:"lifecycle"`
	RunID     string         `json:"run_id,omitempty"`
	State     MissionState   `json:"state,omitempty"`
	Sub       string         `json:"sub,omitempty"`
	Outcome   Outcome        `json:"outcome,omitempty"`
	Distance  float64        `json:"distance"`
	Heading   float64        `json:"heading"`
	Ticks     uint64         `json:"ticks"`
	Timestamp time.Time      `json:"timestamp"`
}
