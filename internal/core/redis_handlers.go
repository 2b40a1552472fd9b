package core

import (
	"fmt"

	"robobot-mission/internal/fsm"
	"robobot-mission/internal/hardware"
)

// handleCommand handles mission commands from Redis
func (s *MissionService) handleCommand(cmd string) error {
	s.logger.Debugf("Handling mission command: %s", cmd)
	switch cmd {
	case "start":
		s.sendEvent(fsm.EvStart)
	case "stop":
		s.RequestStop()
	case "reset":
		s.sendEvent(fsm.EvReset)
	default:
		return fmt.Errorf("invalid mission command: %s", cmd)
	}
	return nil
}

// handleButton maps start/stop button presses to commands. Releases are ignored.
func (s *MissionService) handleButton(channel string, pressed bool) error {
	if !pressed {
		return nil
	}
	s.logger.Infof("Button %s pressed", channel)
	switch channel {
	case hardware.ChannelStartButton:
		return s.handleCommand("start")
	case hardware.ChannelStopButton:
		return s.handleCommand("stop")
	default:
		return fmt.Errorf("unexpected button channel: %s", channel)
	}
}
