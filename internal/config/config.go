package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Versifine/mouselook/internal/pointer"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Input        InputConfig        `yaml:"input"`
	Sensitivity  SensitivityConfig  `yaml:"sensitivity"`
	Quantization QuantizationConfig `yaml:"quantization"`
	Loop         LoopConfig         `yaml:"loop"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type InputConfig struct {
	Mode     string `yaml:"mode"`     // "mouse", "mouse_and_keyboard", "keyboard_or_gamepad"
	Platform string `yaml:"platform"` // "evdev", "sdl", "console"
	Device   string `yaml:"device"`   // evdev node, e.g. /dev/input/event3
	Grab     bool   `yaml:"grab"`
}

type SensitivityConfig struct {
	Horizontal     float64 `yaml:"horizontal"`
	Vertical       float64 `yaml:"vertical"`
	InvertVertical bool    `yaml:"invert_vertical"`
	Acceleration   bool    `yaml:"acceleration"`
}

type QuantizationConfig struct {
	YawBits   uint `yaml:"yaw_bits"`
	PitchBits uint `yaml:"pitch_bits"`
}

type LoopConfig struct {
	TickRate   int `yaml:"tick_rate"`
	QueueDepth int `yaml:"queue_depth"`
}

type TelemetryConfig struct {
	Listen string `yaml:"listen"`
}

func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Input: InputConfig{
			Mode:     "mouse",
			Platform: "console",
			Grab:     true,
		},
		Sensitivity: SensitivityConfig{Horizontal: 1, Vertical: 1},
		Quantization: QuantizationConfig{
			YawBits:   pointer.DefaultYawBits,
			PitchBits: pointer.DefaultPitchBits,
		},
		Loop: LoopConfig{TickRate: 30, QueueDepth: 256},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := ParseMode(c.Input.Mode); err != nil {
		return err
	}
	switch c.Input.Platform {
	case "evdev":
		if c.Input.Device == "" {
			return fmt.Errorf("%w: input.device is required for evdev", ErrInvalidConfig)
		}
	case "sdl", "console":
	default:
		return fmt.Errorf("%w: unknown input.platform %q", ErrInvalidConfig, c.Input.Platform)
	}
	if !ValidScale(c.Sensitivity.Horizontal) || !ValidScale(c.Sensitivity.Vertical) {
		return fmt.Errorf("%w: sensitivity must be positive and finite, got horizontal=%v vertical=%v",
			ErrInvalidConfig, c.Sensitivity.Horizontal, c.Sensitivity.Vertical)
	}
	q := c.Quantization
	if q.YawBits < 2 || q.YawBits > 16 || q.PitchBits < 2 || q.PitchBits > 16 {
		return fmt.Errorf("%w: quantization bits must be within [2,16], got yaw=%d pitch=%d", ErrInvalidConfig, q.YawBits, q.PitchBits)
	}
	if c.Loop.TickRate <= 0 {
		return fmt.Errorf("%w: loop.tick_rate must be positive", ErrInvalidConfig)
	}
	if c.Loop.QueueDepth <= 0 {
		return fmt.Errorf("%w: loop.queue_depth must be positive", ErrInvalidConfig)
	}
	return nil
}

// ValidScale reports whether v can be used as a sensitivity multiplier.
func ValidScale(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func ParseMode(s string) (pointer.Mode, error) {
	switch s {
	case "mouse":
		return pointer.ModeMouse, nil
	case "mouse_and_keyboard":
		return pointer.ModeMouseAndKeyboard, nil
	case "keyboard_or_gamepad", "keyboard":
		return pointer.ModeKeyboardOrGamepad, nil
	default:
		return 0, fmt.Errorf("%w: unknown input.mode %q", ErrInvalidConfig, s)
	}
}

func (s SensitivityConfig) Pointer() pointer.Sensitivity {
	return pointer.Sensitivity{
		Horizontal:     s.Horizontal,
		Vertical:       s.Vertical,
		InvertVertical: s.InvertVertical,
		Acceleration:   s.Acceleration,
	}
}

func (q QuantizationConfig) Pointer() pointer.Quantization {
	return pointer.Quantization{YawBits: q.YawBits, PitchBits: q.PitchBits}
}
