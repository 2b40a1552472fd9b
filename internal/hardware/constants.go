package hardware

import "time"

// Consumer labels the GPIO lines requested by this service.
const Consumer = "robobot-mission"

// Channel names used by the service for configured GPIO lines.
const (
	ChannelStartButton = "start_button"
	ChannelStopButton  = "stop_button"
	ChannelSiren       = "siren"
	ChannelStatusLED   = "status_led"
)

// SirenPulse is how long the siren sounds when a run finishes.
const SirenPulse = 2 * time.Second
