// Package config loads the robobot mission configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment overrides:
//
//	ROBOBOT_MISSION_TICK_INTERVAL -> mission.tick_interval
//	ROBOBOT_PARAMETERS_FOLLOW_LINE_SPEED -> parameters.follow_line_speed
const EnvPrefix = "ROBOBOT_"

// DefaultPath is where the service looks for its configuration file.
const DefaultPath = "/etc/robobot/robobot.yaml"

const maxConfigFileSize = 1024 * 1024

var (
	// ErrMissingParameter is wrapped with the key of every absent mission parameter.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidProfile is wrapped when a calibration profile is absent or malformed.
	ErrInvalidProfile = errors.New("invalid calibration profile")
)

var defaults = map[string]interface{}{
	"mission.run":           false,
	"mission.log":           true,
	"mission.print":         true,
	"mission.log_dir":       "/var/log/robobot",
	"mission.tick_interval": "2ms",
	"mission.settle_time":   "1s",
	"redis.host":            "127.0.0.1",
	"redis.port":            6379,
	"redis.db":              0,
	"robot.mixer":           MixerRedis,
	"robot.serial_baud":     115200,
	"gpio.chip":             "gpiochip0",
	"gpio.start_button":     -1,
	"gpio.stop_button":      -1,
	"gpio.siren":            -1,
	"gpio.status_led":       -1,
	"gpio.debounce":         "20ms",
	"http.addr":             "",
	"nice":                  0,
}

// Load reads the YAML file at path, applies ROBOBOT_ environment overrides
// and fills in defaults. Missing mission parameters and malformed calibration
// profiles are setup errors.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s too large: %d bytes", path, info.Size())
		}
		content, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes is Load for configuration already in memory.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range defaults {
		if k.Exists(key) {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if err := checkParameters(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ROBOBOT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// ParameterKeys lists the koanf key of every mission parameter.
func ParameterKeys() []string {
	t := reflect.TypeOf(Parameters{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" && tag != "-" {
			keys = append(keys, tag)
		}
	}
	return keys
}

// Each calls fn with the koanf key and value of every mission parameter, in
// declaration order.
func (p Parameters) Each(fn func(key string, value interface{})) {
	v := reflect.ValueOf(p)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" && tag != "-" {
			fn(tag, v.Field(i).Interface())
		}
	}
}

func checkParameters(k *koanf.Koanf) error {
	var missing []string
	for _, key := range ParameterKeys() {
		if !k.Exists("parameters." + key) {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingParameter, strings.Join(missing, ", "))
}

// Validate checks ranges and converts the calibration profiles.
func (c *Config) Validate() error {
	c.Profiles = make(map[string]CalibrationProfile, len(c.Calibration))
	for name, values := range c.Calibration {
		if len(values) != len(CalibrationProfile{}) {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidProfile, name, len(values), len(CalibrationProfile{}))
		}
		var p CalibrationProfile
		copy(p[:], values)
		c.Profiles[name] = p
	}
	for _, name := range requiredProfiles {
		if _, ok := c.Profiles[name]; !ok {
			return fmt.Errorf("%w: %s not configured", ErrInvalidProfile, name)
		}
	}

	if c.Mission.TickInterval < 0 {
		return fmt.Errorf("mission.tick_interval must not be negative, got %v", c.Mission.TickInterval)
	}
	if c.Mission.SettleTime < 0 {
		return fmt.Errorf("mission.settle_time must not be negative, got %v", c.Mission.SettleTime)
	}

	switch c.Robot.Mixer {
	case MixerRedis:
	case MixerSerial:
		if c.Robot.SerialPort == "" {
			return fmt.Errorf("robot.serial_port is required for the serial mixer")
		}
		if c.Robot.SerialBaud <= 0 {
			return fmt.Errorf("robot.serial_baud must be positive, got %d", c.Robot.SerialBaud)
		}
	default:
		return fmt.Errorf("robot.mixer must be %q or %q, got %q", MixerRedis, MixerSerial, c.Robot.Mixer)
	}

	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis.port out of range: %d", c.Redis.Port)
	}

	return c.Parameters.Validate()
}

// Validate checks the parameters the mission indexes or divides by.
func (p Parameters) Validate() error {
	for name, ch := range map[string]int{
		"regbot_distance_channel": p.RegbotDistanceChannel,
		"axe_distance_channel":    p.AxeDistanceChannel,
		"door_front_channel":      p.DoorFrontChannel,
		"door_side_channel":       p.DoorSideChannel,
	} {
		if ch < 0 {
			return fmt.Errorf("parameters.%s must not be negative, got %d", name, ch)
		}
	}
	if len(p.ChronoRampSpeeds) == 0 {
		return fmt.Errorf("parameters.chrono_ramp_speeds must not be empty")
	}
	if p.ChronoRampStep <= 0 {
		return fmt.Errorf("parameters.chrono_ramp_step must be positive, got %v", p.ChronoRampStep)
	}
	for name, n := range map[string]int{
		"line_lost_threshold":        p.LineLostThreshold,
		"door_line_lost_threshold":   p.DoorLineLostThreshold,
		"chrono_line_lost_threshold": p.ChronoLineLostThreshold,
	} {
		if n < 0 {
			return fmt.Errorf("parameters.%s must not be negative, got %d", name, n)
		}
	}
	return nil
}

// Seconds converts a parameter in seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
