package config

import (
	"fmt"
	"time"
)

// CalibrationProfile is the set of 8 per-channel black/wood thresholds sent to
// the edge sensor.
type CalibrationProfile [8]int

func (p CalibrationProfile) String() string {
	return fmt.Sprintf("%d %d %d %d %d %d %d %d", p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7])
}

// Names of the calibration profiles the mission swaps between.
const (
	ProfileRacetrack = "racetrack"
	ProfileWood      = "wood"
	ProfileSiren     = "siren"
)

var requiredProfiles = []string{ProfileRacetrack, ProfileWood, ProfileSiren}

type Config struct {
	Mission     MissionConfig    `koanf:"mission"`
	Parameters  Parameters       `koanf:"parameters"`
	Calibration map[string][]int `koanf:"calibration"`
	Redis       RedisConfig      `koanf:"redis"`
	Robot       RobotConfig      `koanf:"robot"`
	GPIO        GPIOConfig       `koanf:"gpio"`
	HTTP        HTTPConfig       `koanf:"http"`
	Nice        int              `koanf:"nice"`

	// Profiles is Calibration checked and converted during Load.
	Profiles map[string]CalibrationProfile `koanf:"-"`
}

type MissionConfig struct {
	Run          bool          `koanf:"run"`
	Log          bool          `koanf:"log"`
	Print        bool          `koanf:"print"`
	LogDir       string        `koanf:"log_dir"`
	TickInterval time.Duration `koanf:"tick_interval"`
	SettleTime   time.Duration `koanf:"settle_time"`
}

type RedisConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	DB   int    `koanf:"db"`
}

// Mixer transports.
const (
	MixerRedis  = "redis"
	MixerSerial = "serial"
)

type RobotConfig struct {
	Mixer      string `koanf:"mixer"`
	SerialPort string `koanf:"serial_port"`
	SerialBaud int    `koanf:"serial_baud"`
}

// GPIOConfig holds line offsets on a single chip. A negative offset disables
// the line.
type GPIOConfig struct {
	Chip        string        `koanf:"chip"`
	StartButton int           `koanf:"start_button"`
	StopButton  int           `koanf:"stop_button"`
	Siren       int           `koanf:"siren"`
	StatusLED   int           `koanf:"status_led"`
	Debounce    time.Duration `koanf:"debounce"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// Parameters is the immutable tuning set read once at setup. Every field is
// required in the configuration file.
type Parameters struct {
	// Shared line following and detection
	ThresholdDistanceToStartDetection float64 `koanf:"threshold_distance_to_start_detection"`
	MinimumLineWidth                  float64 `koanf:"minimum_line_width"`
	DefaultFollowLineMargin           float64 `koanf:"default_follow_line_margin"`
	FollowLineSpeed                   float64 `koanf:"follow_line_speed"`
	LineLostThreshold                 int     `koanf:"line_lost_threshold"`
	TurnTolerance                     float64 `koanf:"turn_tolerance"`
	BangBangTurnrate                  float64 `koanf:"bang_bang_turnrate"`

	AvoidRegbotMargin    float64 `koanf:"avoid_regbot_margin"`
	DistanceToRoundabout float64 `koanf:"distance_to_roundabout"`

	// Roundabout
	RegbotDistanceChannel      int     `koanf:"regbot_distance_channel"`
	MinimumDistanceToRegbot    float64 `koanf:"minimum_distance_to_regbot"`
	SecondsForRegbotToLeave    float64 `koanf:"seconds_for_regbot_to_leave"`
	RoundaboutReverseSpeed     float64 `koanf:"roundabout_reverse_speed"`
	RoundaboutReverseTime      float64 `koanf:"roundabout_reverse_time"`
	RoundaboutEnterSpeed       float64 `koanf:"roundabout_enter_speed"`
	RoundaboutApproachDistance float64 `koanf:"roundabout_approach_distance"`
	RoundaboutTurnrateBias     float64 `koanf:"roundabout_turnrate_bias"`
	RoundaboutExitTurn         float64 `koanf:"roundabout_exit_turn"`

	// Axe
	AxeEntryTurn         float64 `koanf:"axe_entry_turn"`
	AxeDistanceChannel   int     `koanf:"axe_distance_channel"`
	AxeApproachSpeed     float64 `koanf:"axe_approach_speed"`
	AxeApproachDistance  float64 `koanf:"axe_approach_distance"`
	MinimumDistanceToAxe float64 `koanf:"minimum_distance_to_axe"`
	FreeDistanceToAxe    float64 `koanf:"free_distance_to_axe"`
	AxeCrossSpeed        float64 `koanf:"axe_cross_speed"`
	DistanceToCrossAxe   float64 `koanf:"distance_to_cross_axe"`
	AxeExitTurn          float64 `koanf:"axe_exit_turn"`

	// Doors
	DoorApproachDistance       float64 `koanf:"door_approach_distance"`
	DoorTurnToWall             float64 `koanf:"door_turn_to_wall"`
	DoorWallSpeed              float64 `koanf:"door_wall_speed"`
	DoorWallDistance           float64 `koanf:"door_wall_distance"`
	DoorFrontChannel           int     `koanf:"door_front_channel"`
	DoorSideChannel            int     `koanf:"door_side_channel"`
	DoorAlignTurnrate          float64 `koanf:"door_align_turnrate"`
	DoorPerpendicularTolerance float64 `koanf:"door_perpendicular_tolerance"`
	DoorBackoffSpeed           float64 `koanf:"door_backoff_speed"`
	DoorBackoffTime            float64 `koanf:"door_backoff_time"`
	DoorFirstDoorDistance      float64 `koanf:"door_first_door_distance"`
	DoorLineLostThreshold      int     `koanf:"door_line_lost_threshold"`

	// To chrono
	ChronoRampSpeeds           []float64 `koanf:"chrono_ramp_speeds"`
	ChronoRampStep             float64   `koanf:"chrono_ramp_step"`
	ChronoProfileSwapDistance  float64   `koanf:"chrono_profile_swap_distance"`
	ChronoFirstStraightLength  float64   `koanf:"chrono_first_straight_length"`
	ChronoCurveMaxTurnrate     float64   `koanf:"chrono_curve_max_turnrate"`
	ChronoStraightMaxTurnrate  float64   `koanf:"chrono_straight_max_turnrate"`
	ChronoFirstCurveLength     float64   `koanf:"chrono_first_curve_length"`
	ChronoSecondStraightSpeed  float64   `koanf:"chrono_second_straight_speed"`
	ChronoSecondStraightLength float64   `koanf:"chrono_second_straight_length"`
	ChronoLineLostThreshold    int       `koanf:"chrono_line_lost_threshold"`

	// Ramp, seesaw and siren
	DistanceBefore180Turn float64 `koanf:"distance_before_180_turn"`
	SeesawMinDistance     float64 `koanf:"seesaw_min_distance"`
	SeesawTurn            float64 `koanf:"seesaw_turn"`
	SeesawAdvanceDist     float64 `koanf:"seesaw_advance_dist"`
	SeesawSpeed           float64 `koanf:"seesaw_speed"`
	SirenTurn             float64 `koanf:"siren_turn"`
	SirenFinalTurn        float64 `koanf:"siren_final_turn"`
}
