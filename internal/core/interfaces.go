package core

import (
	"time"

	"robobot-mission/internal/hardware"
	"robobot-mission/internal/messaging"
	"robobot-mission/internal/types"
)

// MessagingClient defines the interface for Redis messaging operations needed by MissionService
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// Status
	PublishMissionStatus(status types.MissionStatus, field string) error
	GetHashField(hash, field string) (string, error)
}

// HardwareIO defines the interface for hardware I/O operations needed by MissionService
type HardwareIO interface {
	Initialize() error
	Cleanup()

	WriteDigitalOutput(channel string, value bool) error
	PulseOutput(channel string, d time.Duration) error
	RegisterInputCallback(channel string, callback hardware.InputCallback)
}

// Closer is implemented by robot links that own a device, such as the serial mixer.
type Closer interface {
	Close() error
}
