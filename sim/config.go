package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StageConfig groups the processing-time parameters of one stage. Actual
// durations are triangular on [BaseTime·LowFactor, BaseTime·HighFactor]
// with mode BaseTime.
type StageConfig struct {
	BaseTime   float64 `yaml:"baseTime"`   // mode of the triangular draw (minutes, must be > 0)
	LowFactor  float64 `yaml:"lowFactor"`  // lower-bound multiplier (must be > 0, <= 1)
	HighFactor float64 `yaml:"highFactor"` // upper-bound multiplier (must be >= 1)
}

// Config is the full, immutable-per-run configuration of one simulation.
type Config struct {
	Seed     int64   `yaml:"seed"`     // RNG seed; same seed + config => identical run
	SimHours float64 `yaml:"simHours"` // simulated horizon in hours (must be > 0)

	ArrivalMean float64 `yaml:"arrivalMean"` // mean interarrival time (minutes, must be > 0)

	Cut  StageConfig `yaml:"cut"`
	Cell StageConfig `yaml:"cell"`
	Pack StageConfig `yaml:"pack"`

	CutterCapacity int `yaml:"cutterCapacity"` // must be >= 1
	RobotCapacity  int `yaml:"robotCapacity"`  // must be >= 1
	HeaterCapacity int `yaml:"heaterCapacity"` // must be >= 1
	PackerCapacity int `yaml:"packerCapacity"` // must be >= 1

	Buffer1Capacity int `yaml:"buffer1Capacity"` // cutting → cell buffer, must be >= 1
	Buffer2Capacity int `yaml:"buffer2Capacity"` // cell → packaging buffer, must be >= 1

	FailureMTBF float64 `yaml:"failureMTBF"` // mean time between Robot failures (minutes); 0 disables failures
	FailureMTTR float64 `yaml:"failureMTTR"` // mean time to repair (minutes, must be > 0 when MTBF > 0)

	PaceMs int `yaml:"paceMs"` // external pacing interval (ms); observability only, 0 = unpaced
}

// DefaultConfig returns the baseline scenario.
func DefaultConfig() Config {
	return Config{
		Seed:            42,
		SimHours:        8,
		ArrivalMean:     1.8,
		Cut:             StageConfig{BaseTime: 1.2, LowFactor: 0.8, HighFactor: 1.2},
		Cell:            StageConfig{BaseTime: 2.5, LowFactor: 0.8, HighFactor: 1.2},
		Pack:            StageConfig{BaseTime: 1.0, LowFactor: 0.8, HighFactor: 1.2},
		CutterCapacity:  1,
		RobotCapacity:   1,
		HeaterCapacity:  1,
		PackerCapacity:  1,
		Buffer1Capacity: 5,
		Buffer2Capacity: 5,
		FailureMTBF:     45,
		FailureMTTR:     4,
		PaceMs:          0,
	}
}

// HorizonMinutes returns the simulated horizon in minutes.
func (c Config) HorizonMinutes() float64 { return c.SimHours * 60 }

// FailuresEnabled reports whether the Robot failure sub-process runs.
func (c Config) FailuresEnabled() bool { return c.FailureMTBF > 0 }

// ConfigError reports an invalid configuration field. Invalid parameters
// are rejected at construction/update time rather than clamped internally.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (c StageConfig) validate(name string) error {
	if c.BaseTime <= 0 {
		return &ConfigError{Field: name + ".baseTime", Reason: "must be positive"}
	}
	if c.LowFactor <= 0 || c.LowFactor > 1 {
		return &ConfigError{Field: name + ".lowFactor", Reason: "must be in (0, 1]"}
	}
	if c.HighFactor < 1 {
		return &ConfigError{Field: name + ".highFactor", Reason: "must be >= 1"}
	}
	return nil
}

// Validate checks every field and returns a *ConfigError for the first
// violation found.
func (c Config) Validate() error {
	if c.SimHours <= 0 {
		return &ConfigError{Field: "simHours", Reason: "must be positive"}
	}
	if c.ArrivalMean <= 0 {
		return &ConfigError{Field: "arrivalMean", Reason: "must be positive"}
	}
	if err := c.Cut.validate("cut"); err != nil {
		return err
	}
	if err := c.Cell.validate("cell"); err != nil {
		return err
	}
	if err := c.Pack.validate("pack"); err != nil {
		return err
	}
	caps := []struct {
		name string
		val  int
	}{
		{"cutterCapacity", c.CutterCapacity},
		{"robotCapacity", c.RobotCapacity},
		{"heaterCapacity", c.HeaterCapacity},
		{"packerCapacity", c.PackerCapacity},
		{"buffer1Capacity", c.Buffer1Capacity},
		{"buffer2Capacity", c.Buffer2Capacity},
	}
	for _, cc := range caps {
		if cc.val < 1 {
			return &ConfigError{Field: cc.name, Reason: "must be at least 1"}
		}
	}
	if c.FailureMTBF < 0 {
		return &ConfigError{Field: "failureMTBF", Reason: "must be >= 0 (0 disables failures)"}
	}
	if c.FailureMTBF > 0 && c.FailureMTTR <= 0 {
		return &ConfigError{Field: "failureMTTR", Reason: "must be positive when failures are enabled"}
	}
	if c.PaceMs < 0 {
		return &ConfigError{Field: "paceMs", Reason: "must be >= 0"}
	}
	return nil
}

// LoadConfig reads a YAML scenario file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// StagePatch is a partial StageConfig; nil fields are left unchanged.
type StagePatch struct {
	BaseTime   *float64 `yaml:"baseTime"`
	LowFactor  *float64 `yaml:"lowFactor"`
	HighFactor *float64 `yaml:"highFactor"`
}

func (p StagePatch) apply(c *StageConfig) {
	if p.BaseTime != nil {
		c.BaseTime = *p.BaseTime
	}
	if p.LowFactor != nil {
		c.LowFactor = *p.LowFactor
	}
	if p.HighFactor != nil {
		c.HighFactor = *p.HighFactor
	}
}

// Patch is a partial Config for UpdateParams; nil fields are left unchanged.
type Patch struct {
	Seed     *int64   `yaml:"seed"`
	SimHours *float64 `yaml:"simHours"`

	ArrivalMean *float64 `yaml:"arrivalMean"`

	Cut  StagePatch `yaml:"cut"`
	Cell StagePatch `yaml:"cell"`
	Pack StagePatch `yaml:"pack"`

	CutterCapacity *int `yaml:"cutterCapacity"`
	RobotCapacity  *int `yaml:"robotCapacity"`
	HeaterCapacity *int `yaml:"heaterCapacity"`
	PackerCapacity *int `yaml:"packerCapacity"`

	Buffer1Capacity *int `yaml:"buffer1Capacity"`
	Buffer2Capacity *int `yaml:"buffer2Capacity"`

	FailureMTBF *float64 `yaml:"failureMTBF"`
	FailureMTTR *float64 `yaml:"failureMTTR"`

	PaceMs *int `yaml:"paceMs"`
}

// Apply merges the patch into cfg.
func (p Patch) Apply(cfg *Config) {
	if p.Seed != nil {
		cfg.Seed = *p.Seed
	}
	if p.SimHours != nil {
		cfg.SimHours = *p.SimHours
	}
	if p.ArrivalMean != nil {
		cfg.ArrivalMean = *p.ArrivalMean
	}
	p.Cut.apply(&cfg.Cut)
	p.Cell.apply(&cfg.Cell)
	p.Pack.apply(&cfg.Pack)
	if p.CutterCapacity != nil {
		cfg.CutterCapacity = *p.CutterCapacity
	}
	if p.RobotCapacity != nil {
		cfg.RobotCapacity = *p.RobotCapacity
	}
	if p.HeaterCapacity != nil {
		cfg.HeaterCapacity = *p.HeaterCapacity
	}
	if p.PackerCapacity != nil {
		cfg.PackerCapacity = *p.PackerCapacity
	}
	if p.Buffer1Capacity != nil {
		cfg.Buffer1Capacity = *p.Buffer1Capacity
	}
	if p.Buffer2Capacity != nil {
		cfg.Buffer2Capacity = *p.Buffer2Capacity
	}
	if p.FailureMTBF != nil {
		cfg.FailureMTBF = *p.FailureMTBF
	}
	if p.FailureMTTR != nil {
		cfg.FailureMTTR = *p.FailureMTTR
	}
	if p.PaceMs != nil {
		cfg.PaceMs = *p.PaceMs
	}
}
