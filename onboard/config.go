package onboard

import (
	"fmt"
	"io/ioutil"
	"sort"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/auto"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v2"
)

const (
	CONFIG_VERSION = "^1.0"
	DEFAULT_RATE   = 50 // Hz
	MAX_RATE       = 1000
)

type RobotConfig struct {
	Version   string                       `yaml:"version"`
	Rate      int                          `yaml:"rate"`
	Hardware  HardwareConfig               `yaml:"hardware"`
	Constants drive.Constants              `yaml:"constants"`
	Routines  map[string][]auto.StepConfig `yaml:"routines"`
}

// HardwareConfig describes where the control node lives and which of its
// channels each drivetrain device is wired to.
type HardwareConfig struct {
	Bus      string `yaml:"bus"`    // SocketCAN interface
	Serial   string `yaml:"serial"` // slcan adapter, used when bus is empty
	Baud     int    `yaml:"baud"`
	Node     uint32 `yaml:"node"`
	AllowDev bool   `yaml:"allow_dev"`

	Motors struct {
		LeftA  uint8 `yaml:"left_a"`
		LeftB  uint8 `yaml:"left_b"`
		RightA uint8 `yaml:"right_a"`
		RightB uint8 `yaml:"right_b"`
	} `yaml:"motors"`

	Solenoids struct {
		Shifter    uint8 `yaml:"shifter"`
		PizzaWheel uint8 `yaml:"pizza_wheel"`
		Brake      uint8 `yaml:"brake"`
	} `yaml:"solenoids"`

	Encoders struct {
		Left  uint8 `yaml:"left"`
		Right uint8 `yaml:"right"`
	} `yaml:"encoders"`

	BumpSensor uint8 `yaml:"bump_sensor"`
}

func LoadConfig(path string) (config *RobotConfig, err error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig reads a robot configuration. Missing constants keep their
// defaults and a missing rate runs the loop at DEFAULT_RATE.
func ParseConfig(data []byte) (config *RobotConfig, err error) {
	config = &RobotConfig{
		Rate:      DEFAULT_RATE,
		Constants: drive.DefaultConstants(),
	}

	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err = config.checkVersion(); err != nil {
		return nil, err
	}

	if config.Rate <= 0 || config.Rate > MAX_RATE {
		return nil, fmt.Errorf("control rate must be between 1 and %d Hz, got %d", MAX_RATE, config.Rate)
	}

	if err = config.Constants.Validate(); err != nil {
		return nil, err
	}

	// routines are built without a drivetrain only to check their shape
	for name, steps := range config.Routines {
		if _, err = auto.BuildRoutine(steps, nil, nil); err != nil {
			return nil, fmt.Errorf("routine %s: %w", name, err)
		}
	}

	return config, nil
}

func (c *RobotConfig) checkVersion() error {
	versionErr := deverrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}

	version, err := semver.NewVersion(c.Version)
	if err != nil {
		return versionErr
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(version) {
		return versionErr
	}
	return nil
}

// Period is the time between control cycles.
func (c *RobotConfig) Period() time.Duration {
	return time.Second / time.Duration(c.Rate)
}

func (c *RobotConfig) RoutineNames() (names []string) {
	for name := range c.Routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
