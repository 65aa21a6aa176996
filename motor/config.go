package motor

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"time"

	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v2"
)

const (
	// CONFIG_VERSION is the constraint a config file version must satisfy.
	CONFIG_VERSION = "~1.0.0"

	// DEFAULT_CONTROL_FREQUENCY is the cadence a caller loop is expected to
	// run Update at when the config does not say otherwise.
	DEFAULT_CONTROL_FREQUENCY = 100.0 // Hz

	// STEP_THRESHOLD separates step commands from trajectory commands.
	// Durations at or below this take effect immediately.
	STEP_THRESHOLD = 20 * time.Millisecond

	// ZERO_SETTLE_TIME is how long the motor needs to persist a new zero
	// reference before feedback reflects it.
	ZERO_SETTLE_TIME = 500 * time.Millisecond
)

var ifacePattern = regexp.MustCompile(`^can\d+$`)

// MotorConfig is the immutable per-motor configuration. Construct once, pass
// to NewMotor, never mutate.
type MotorConfig struct {
	MotorType string `yaml:"type"`
	MotorID   uint32 `yaml:"id"`
	Interface string `yaml:"interface"`
	Bitrate   int    `yaml:"bitrate"`

	MaxTemperature float64 `yaml:"max_temp"` // degC
	DefaultKp      float64 `yaml:"kp"`       // Nm/rad
	DefaultKd      float64 `yaml:"kd"`       // Nm/(rad/s)

	StepTolerance    float64 `yaml:"step_tolerance"`     // rad
	StepSettlingTime float64 `yaml:"step_settling_time"` // s
	StepTimeout      float64 `yaml:"step_timeout"`       // s
	ControlFrequency float64 `yaml:"control_frequency"`  // Hz
}

// ControlConfig is the on-disk config file: a version gate plus one entry
// per physical motor, keyed by the name used in the console and API.
type ControlConfig struct {
	Version string                  `yaml:"version"`
	Motors  map[string]*MotorConfig `yaml:"motors"`
}

// DefaultMotorConfig mirrors the factory defaults of the AK series drives.
func DefaultMotorConfig() *MotorConfig {
	return &MotorConfig{
		MotorType:        "AK80-64",
		MotorID:          1,
		Interface:        "can0",
		Bitrate:          1000000,
		MaxTemperature:   50.0,
		DefaultKp:        10.0,
		DefaultKd:        0.5,
		StepTolerance:    0.05,
		StepSettlingTime: 0.1,
		StepTimeout:      5.0,
		ControlFrequency: DEFAULT_CONTROL_FREQUENCY,
	}
}

func (c *MotorConfig) Validate() (err error) {
	if c.MotorID < 1 || c.MotorID > 32 {
		return fmt.Errorf("motor id %d outside CAN range 1-32", c.MotorID)
	}
	if !ifacePattern.MatchString(c.Interface) {
		return fmt.Errorf("invalid CAN interface name %q", c.Interface)
	}
	if c.DefaultKp < 0 || c.DefaultKd < 0 {
		return fmt.Errorf("default gains must be non-negative (kp=%g kd=%g)", c.DefaultKp, c.DefaultKd)
	}
	if c.StepTolerance <= 0 {
		return fmt.Errorf("step tolerance must be positive, got %g", c.StepTolerance)
	}
	if c.StepSettlingTime < 0 {
		return fmt.Errorf("step settling time must be non-negative, got %g", c.StepSettlingTime)
	}
	if c.StepTimeout < 0 {
		return fmt.Errorf("step timeout must be non-negative, got %g", c.StepTimeout)
	}
	if c.ControlFrequency <= 0 {
		return fmt.Errorf("control frequency must be positive, got %g", c.ControlFrequency)
	}
	return nil
}

// applyDefaults fills zero-valued fields from the factory defaults so a
// config file only needs to name what it changes.
func (c *MotorConfig) applyDefaults() {
	def := DefaultMotorConfig()
	if c.MotorType == "" {
		c.MotorType = def.MotorType
	}
	if c.Interface == "" {
		c.Interface = def.Interface
	}
	if c.Bitrate == 0 {
		c.Bitrate = def.Bitrate
	}
	if c.MaxTemperature == 0 {
		c.MaxTemperature = def.MaxTemperature
	}
	if c.DefaultKp == 0 {
		c.DefaultKp = def.DefaultKp
	}
	if c.DefaultKd == 0 {
		c.DefaultKd = def.DefaultKd
	}
	if c.StepTolerance == 0 {
		c.StepTolerance = def.StepTolerance
	}
	if c.StepSettlingTime == 0 {
		c.StepSettlingTime = def.StepSettlingTime
	}
	if c.StepTimeout == 0 {
		c.StepTimeout = def.StepTimeout
	}
	if c.ControlFrequency == 0 {
		c.ControlFrequency = def.ControlFrequency
	}
}

// LoadConfig reads and validates a yaml config file.
func LoadConfig(path string) (config *ControlConfig, err error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config = new(ControlConfig)
	if err = yaml.Unmarshal(raw, config); err != nil {
		return nil, err
	}

	if err = config.checkVersion(); err != nil {
		return nil, err
	}

	for name, mc := range config.Motors {
		mc.applyDefaults()
		if err = mc.Validate(); err != nil {
			return nil, fmt.Errorf("motor %s: %v", name, err)
		}
	}

	return config, nil
}

func (c *ControlConfig) checkVersion() (err error) {
	if c.Version == "DEV" {
		// hand-edited development config, accept as-is
		return nil
	}

	semVer, err := semver.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("unable to parse config version %q: %v", c.Version, err)
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(semVer) {
		err = fmt.Errorf("unable to use config: version %s - require %s", c.Version, CONFIG_VERSION)
	}
	return
}
