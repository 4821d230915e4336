package onboard

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/auto"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
)

const testYaml = `
version: 1.2.0
rate: 100
hardware:
  bus: can0
  node: 0x10
  motors:
    left_a: 0
    left_b: 1
    right_a: 2
    right_b: 3
  solenoids:
    shifter: 0
    pizza_wheel: 1
    brake: 2
  encoders:
    left: 0
    right: 1
  bump_sensor: 4
constants:
  linear_coeff_c: 0.2
  linear_coeff_d: 0.8
  turn_sens_high: 0.7
routines:
  forward:
  - type: drive_distance
    distance: 24
    power: 0.5
  - type: brake
    on: true
  square:
  - type: drive
    throttle: 0.5
    seconds: 1
`

func TestParseConfig(t *testing.T) {
	Convey("parsing is successful", t, func() {
		config, err := ParseConfig([]byte(testYaml))
		So(err, ShouldBeNil)

		Convey("hardware channels are set", func() {
			So(config.Hardware.Bus, ShouldEqual, "can0")
			So(config.Hardware.Node, ShouldEqual, 0x10)
			So(config.Hardware.Motors.RightB, ShouldEqual, 3)
			So(config.Hardware.Solenoids.Brake, ShouldEqual, 2)
			So(config.Hardware.BumpSensor, ShouldEqual, 4)
		})

		Convey("constants not given keep their defaults", func() {
			So(config.Constants.LinearCoeffC, ShouldEqual, 0.2)
			So(config.Constants.LinearCoeffD, ShouldEqual, 0.8)
			So(config.Constants.TurnSensHigh, ShouldEqual, 0.7)
			So(config.Constants.TurnSensLow, ShouldEqual, drive.DefaultConstants().TurnSensLow)
		})

		Convey("rate gives the period", func() {
			So(config.Period(), ShouldEqual, 10*time.Millisecond)
		})

		Convey("routines are listed by name", func() {
			So(config.RoutineNames(), ShouldResemble, []string{"forward", "square"})
			So(config.Routines["forward"], ShouldHaveLength, 2)
		})
	})

	Convey("a bare config gets the default rate", t, func() {
		config, err := ParseConfig([]byte("version: 1.0.0\n"))
		So(err, ShouldBeNil)
		So(config.Rate, ShouldEqual, DEFAULT_RATE)
		So(config.Constants, ShouldResemble, drive.DefaultConstants())
	})

	Convey("incompatible versions are refused", t, func() {
		for _, v := range []string{"version: 2.0.0", "version: potato", "rate: 50"} {
			_, err := ParseConfig([]byte(v))

			var versionErr deverrors.ConfigVersionError
			So(errors.As(err, &versionErr), ShouldBeTrue)
		}
	})

	Convey("invalid values are refused", t, func() {
		_, err := ParseConfig([]byte("version: 1.0.0\nrate: 0\n"))
		So(err, ShouldNotBeNil)

		_, err = ParseConfig([]byte("version: 1.0.0\nrate: 2000000000\n"))
		So(err, ShouldNotBeNil)

		config, err := ParseConfig([]byte("version: 1.0.0\nrate: 1000\n"))
		So(err, ShouldBeNil)
		So(config.Period(), ShouldEqual, time.Millisecond)

		_, err = ParseConfig([]byte("version: 1.0.0\nconstants:\n  inertia_gain: .nan\n"))
		So(err, ShouldNotBeNil)

		_, err = ParseConfig([]byte("version: 1.0.0\nroutines:\n  bad:\n  - type: dance\n"))
		var stepErr deverrors.UnknownStepError
		So(errors.As(err, &stepErr), ShouldBeTrue)

		_, err = ParseConfig([]byte("version: 1.0.0\nroutines:\n  stuck:\n  - type: drive_distance\n    distance: 24\n"))
		So(errors.Is(err, auto.ErrNoPower), ShouldBeTrue)
	})

	Convey("malformed yaml is refused", t, func() {
		_, err := ParseConfig([]byte("version: [1"))
		So(err, ShouldNotBeNil)
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("config is loaded from a file", t, func() {
		dir, err := ioutil.TempDir("", "robotconfig")
		So(err, ShouldBeNil)
		path := filepath.Join(dir, "robot.yaml")
		So(ioutil.WriteFile(path, []byte(testYaml), 0644), ShouldBeNil)

		config, err := LoadConfig(path)
		So(err, ShouldBeNil)
		So(config.Rate, ShouldEqual, 100)

		Convey("a missing file errors", func() {
			_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})

		Reset(func() {
			os.RemoveAll(dir)
		})
	})
}
