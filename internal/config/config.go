package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/orrery/internal/face"
	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
	"github.com/signalsfoundry/orrery/timectrl"
)

type Config struct {
	Tick    TickConfig                    `yaml:"tick"`
	Clock   ClockConfig                   `yaml:"clock"`
	Face    FaceConfig                    `yaml:"face"`
	Bodies  map[model.BodyID]BodyOverride `yaml:"bodies"`
	Sensor  SensorConfig                  `yaml:"sensor"`
	Metrics MetricsConfig                 `yaml:"metrics"`
	Tracing TracingConfig                 `yaml:"tracing"`
	Persist PersistConfig                 `yaml:"persist"`
	Log     LogConfig                     `yaml:"log"`
}

type TickConfig struct {
	Interval time.Duration `yaml:"interval"`
	Mode     string        `yaml:"mode"`
	Duration time.Duration `yaml:"duration"`
}

type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

type FaceConfig struct {
	Mode string `yaml:"mode"`
}

type BodyOverride struct {
	Period      *float64 `yaml:"period"`
	PhaseOffset *float64 `yaml:"phase_offset"`
}

type SensorConfig struct {
	Enabled            bool          `yaml:"enabled"`
	BaseHPa            float64       `yaml:"base_hpa"`
	MaxStepHPa         float64       `yaml:"max_step_hpa"`
	Latency            time.Duration `yaml:"latency"`
	Seed               uint64        `yaml:"seed"`
	ArmIntervalDegrees float64       `yaml:"arm_interval_degrees"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type PersistConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Sensor: SensorConfig{Enabled: true}}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(raw []byte) (*Config, error) {
	cfg := Config{Sensor: SensorConfig{Enabled: true}}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Tick.Interval == 0 {
		c.Tick.Interval = time.Second
	}
	if c.Tick.Mode == "" {
		c.Tick.Mode = "wallclock"
	}
	if c.Clock.Timezone == "" {
		c.Clock.Timezone = "Local"
	}
	if c.Face.Mode == "" {
		c.Face.Mode = "colour"
	}
	if c.Sensor.BaseHPa == 0 {
		c.Sensor.BaseHPa = 1013.25
	}
	if c.Sensor.MaxStepHPa == 0 {
		c.Sensor.MaxStepHPa = 0.25
	}
	if c.Sensor.Latency == 0 {
		c.Sensor.Latency = 200 * time.Millisecond
	}
	if c.Sensor.ArmIntervalDegrees == 0 {
		c.Sensor.ArmIntervalDegrees = 36
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "orrery"
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Tick.Interval < 0 {
		return fmt.Errorf("tick.interval must be positive")
	}
	if _, ok := timectrl.ParseMode(c.Tick.Mode); !ok {
		return fmt.Errorf("tick.mode %q is not one of realtime, accelerated, wallclock", c.Tick.Mode)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("clock.timezone: %w", err)
	}
	if _, err := face.ParseMode(c.Face.Mode); err != nil {
		return fmt.Errorf("face.mode: %w", err)
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("bodies: %w", err)
	}
	// The minute hand only lands on whole minutes, i.e. multiples of 6 degrees.
	if iv := c.Sensor.ArmIntervalDegrees; iv <= 0 || iv > 360 || math.Mod(iv, 6) != 0 {
		return fmt.Errorf("sensor.arm_interval_degrees %v must be a multiple of 6 in (0,360]", iv)
	}
	if c.Sensor.Latency < 0 {
		return fmt.Errorf("sensor.latency must not be negative")
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("tracing.exporter %q is not one of stdout, otlp", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be in [0,1]")
	}
	return nil
}

// Location resolves clock.timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Clock.Timezone)
}

// TickMode resolves tick.mode.
func (c *Config) TickMode() timectrl.Mode {
	m, _ := timectrl.ParseMode(c.Tick.Mode)
	return m
}

// FaceMode resolves face.mode.
func (c *Config) FaceMode() face.Mode {
	m, _ := face.ParseMode(c.Face.Mode)
	return m
}

// Catalog builds the default body catalog with any overrides applied.
func (c *Config) Catalog() (*kb.Catalog, error) {
	base := kb.Default()
	if len(c.Bodies) == 0 {
		return base, nil
	}
	overrides := make(map[model.BodyID]kb.Override, len(c.Bodies))
	for id, o := range c.Bodies {
		overrides[id] = kb.Override{Period: o.Period, PhaseOffset: o.PhaseOffset}
	}
	return base.WithOverrides(overrides)
}
