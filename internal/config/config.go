// Package config holds the controller's tunables: pin assignments,
// barrier motion parameters, occupancy thresholds, and loop intervals.
// The value is owned by the control loop; runtime updates happen only
// during its command-poll step, so no locking is needed.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Pins maps every digital line (BCM numbering) plus the named PWM pins
// and bus devices.
type Pins struct {
	IREntrance   int `json:"ir_entrance"`
	IRExit       int `json:"ir_exit"`
	GateButton   int `json:"gate_button"`
	MasterButton int `json:"master_button"`

	TrafficRed    int `json:"traffic_red"`
	TrafficYellow int `json:"traffic_yellow"`
	TrafficGreen  int `json:"traffic_green"`

	UltrasonicTrig int `json:"ultrasonic_trig"`
	UltrasonicEcho int `json:"ultrasonic_echo"`

	SpotRed   int `json:"spot_red"`
	SpotGreen int `json:"spot_green"`
	AlarmLED  int `json:"alarm_led"`

	Servo  string `json:"servo"`
	Buzzer string `json:"buzzer"`
	Lamp   string `json:"lamp"`

	MQ2SPIPort  string `json:"mq2_spi_port"`
	MQ2Channel  int    `json:"mq2_channel"`
	I2CBus      string `json:"i2c_bus"`
	TSL2561Addr uint16 `json:"tsl2561_addr"`
}

// Config is the persisted configuration. Duration fields are stored in
// milliseconds for readability of the JSON file.
type Config struct {
	Pins Pins `json:"pins"`

	// Barrier motion.
	OpenAngleDeg    int    `json:"open_angle_deg"`
	ClosedAngleDeg  int    `json:"closed_angle_deg"`
	StepDeg         int    `json:"step_deg"`
	StepIntervalMs  int    `json:"step_interval_ms"`
	BlinkIntervalMs int    `json:"blink_interval_ms"`
	SafeDelayMs     int    `json:"safe_delay_ms"`
	PulseMin        uint32 `json:"pulse_min"`
	PulseSpan       uint32 `json:"pulse_span"`

	// Occupancy thresholds (centimeters / milliseconds).
	NearCm             float64 `json:"near_cm"`
	FarCm              float64 `json:"far_cm"`
	ConfirmToleranceCm float64 `json:"confirm_tolerance_cm"`
	FreeMarginCm       float64 `json:"free_margin_cm"`
	OccupiedConfirmMs  int     `json:"occupied_confirm_ms"`
	FreeConfirmMs      int     `json:"free_confirm_ms"`

	// Distance filter.
	BurstSamples int     `json:"burst_samples"`
	BurstPauseMs int     `json:"burst_pause_ms"`
	MinValidCm   float64 `json:"min_valid_cm"`
	MaxValidCm   float64 `json:"max_valid_cm"`
	FilterAlpha  float64 `json:"filter_alpha"`

	// Gas watchdog.
	GasThreshold    int `json:"gas_threshold"`
	GasHysteresis   int `json:"gas_hysteresis"`
	AlarmFreqHz     int `json:"alarm_freq_hz"`
	AlarmIntervalMs int `json:"alarm_interval_ms"`

	// Ambient light.
	LuxThreshold float64 `json:"lux_threshold"`
	LightMode    string  `json:"light_mode"` // AUTO, ON, OFF

	// Telemetry: distances above the cap publish as the cap so the
	// dashboard gauge pins at full scale instead of jumping around.
	DistanceCapCm float64 `json:"distance_cap_cm"`

	// Loop intervals.
	CommandPollMs   int `json:"command_poll_ms"`
	DistanceCheckMs int `json:"distance_check_ms"`
	GasCheckMs      int `json:"gas_check_ms"`
	LightCheckMs    int `json:"light_check_ms"`
	DisplayMs       int `json:"display_ms"`
	TelemetryMs     int `json:"telemetry_ms"`
	MoveSleepMs     int `json:"move_sleep_ms"`
	IdleSleepMs     int `json:"idle_sleep_ms"`
	LongPressMs     int `json:"long_press_ms"`
}

// Default returns the factory configuration.
func Default() Config {
	return Config{
		Pins: Pins{
			IREntrance:     14,
			IRExit:         26,
			GateButton:     12,
			MasterButton:   5,
			TrafficRed:     27,
			TrafficYellow:  4,
			TrafficGreen:   2,
			UltrasonicTrig: 23,
			UltrasonicEcho: 24,
			SpotRed:        16,
			SpotGreen:      33,
			AlarmLED:       25,
			Servo:          "GPIO18",
			Buzzer:         "GPIO13",
			Lamp:           "GPIO19",
			MQ2SPIPort:     "",
			MQ2Channel:     0,
			I2CBus:         "",
			TSL2561Addr:    0x39,
		},

		OpenAngleDeg:    90,
		ClosedAngleDeg:  0,
		StepDeg:         2,
		StepIntervalMs:  30,
		BlinkIntervalMs: 150,
		SafeDelayMs:     1000,
		PulseMin:        1700,
		PulseSpan:       6500,

		NearCm:             3,
		FarCm:              7,
		ConfirmToleranceCm: 1,
		FreeMarginCm:       2,
		OccupiedConfirmMs:  3000,
		FreeConfirmMs:      2000,

		BurstSamples: 7,
		BurstPauseMs: 3,
		MinValidCm:   0.5,
		MaxValidCm:   300,
		FilterAlpha:  0.7,

		GasThreshold:    1500,
		GasHysteresis:   200,
		AlarmFreqHz:     2500,
		AlarmIntervalMs: 300,

		LuxThreshold: 50,
		LightMode:    "AUTO",

		DistanceCapCm: 8.0,

		CommandPollMs:   100,
		DistanceCheckMs: 200,
		GasCheckMs:      500,
		LightCheckMs:    1000,
		DisplayMs:       1000,
		TelemetryMs:     2000,
		MoveSleepMs:     1,
		IdleSleepMs:     5,
		LongPressMs:     5000,
	}
}

// Load reads the configuration from path. A missing file is not an
// error: the defaults are written there and returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration atomically (tmp file + rename).
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// UpdateThreshold applies a runtime threshold change by parameter name,
// as received over the command channel. Unknown names and unparsable
// values are rejected, not silently ignored.
func (c *Config) UpdateThreshold(param, value string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("threshold %s: bad value %q", param, value)
	}
	switch param {
	case "mq2_threshold":
		c.GasThreshold = int(v)
	case "mq2_hyst":
		c.GasHysteresis = int(v)
	case "lux_threshold":
		c.LuxThreshold = v
	case "near_cm":
		c.NearCm = v
	case "far_cm":
		c.FarCm = v
	case "confirm_tolerance_cm":
		c.ConfirmToleranceCm = v
	default:
		return fmt.Errorf("unknown threshold %q", param)
	}
	return nil
}

// UpdateLightMode sets the parking lamp mode: AUTO, ON, or OFF.
func (c *Config) UpdateLightMode(mode string) error {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	switch mode {
	case "AUTO", "ON", "OFF":
		c.LightMode = mode
		return nil
	}
	return fmt.Errorf("invalid light mode %q", mode)
}

// ResetThresholds restores the runtime-tunable values to factory
// defaults, leaving pins and motion parameters untouched.
func (c *Config) ResetThresholds() {
	def := Default()
	c.GasThreshold = def.GasThreshold
	c.GasHysteresis = def.GasHysteresis
	c.LuxThreshold = def.LuxThreshold
	c.NearCm = def.NearCm
	c.FarCm = def.FarCm
	c.ConfirmToleranceCm = def.ConfirmToleranceCm
	c.FreeMarginCm = def.FreeMarginCm
	c.LightMode = def.LightMode
}

// Duration helpers.

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c *Config) StepInterval() time.Duration    { return ms(c.StepIntervalMs) }
func (c *Config) BlinkInterval() time.Duration   { return ms(c.BlinkIntervalMs) }
func (c *Config) SafeDelay() time.Duration       { return ms(c.SafeDelayMs) }
func (c *Config) OccupiedConfirm() time.Duration { return ms(c.OccupiedConfirmMs) }
func (c *Config) FreeConfirm() time.Duration     { return ms(c.FreeConfirmMs) }
func (c *Config) BurstPause() time.Duration      { return ms(c.BurstPauseMs) }
func (c *Config) AlarmInterval() time.Duration   { return ms(c.AlarmIntervalMs) }
func (c *Config) CommandPoll() time.Duration     { return ms(c.CommandPollMs) }
func (c *Config) DistanceCheck() time.Duration   { return ms(c.DistanceCheckMs) }
func (c *Config) GasCheck() time.Duration        { return ms(c.GasCheckMs) }
func (c *Config) LightCheck() time.Duration      { return ms(c.LightCheckMs) }
func (c *Config) Display() time.Duration         { return ms(c.DisplayMs) }
func (c *Config) Telemetry() time.Duration       { return ms(c.TelemetryMs) }
func (c *Config) MoveSleep() time.Duration       { return ms(c.MoveSleepMs) }
func (c *Config) IdleSleep() time.Duration       { return ms(c.IdleSleepMs) }
func (c *Config) LongPress() time.Duration       { return ms(c.LongPressMs) }
