package drive

import (
	"fmt"
	"math"
)

// Constants are the drivetrain tuning values. The linearization coefficients
// describe a quartic in the magnitude of the requested power.
type Constants struct {
	LinearCoeffA float64 `yaml:"linear_coeff_a" json:"linear_coeff_a"`
	LinearCoeffB float64 `yaml:"linear_coeff_b" json:"linear_coeff_b"`
	LinearCoeffC float64 `yaml:"linear_coeff_c" json:"linear_coeff_c"`
	LinearCoeffD float64 `yaml:"linear_coeff_d" json:"linear_coeff_d"`
	LinearCoeffE float64 `yaml:"linear_coeff_e" json:"linear_coeff_e"`

	TurnSensHigh float64 `yaml:"turn_sens_high" json:"turn_sens_high"`
	TurnSensLow  float64 `yaml:"turn_sens_low" json:"turn_sens_low"`
	InertiaGain  float64 `yaml:"inertia_gain" json:"inertia_gain"`
}

// DefaultConstants has an identity linearization and full turn authority in
// both gears.
func DefaultConstants() Constants {
	return Constants{
		LinearCoeffD: 1.0,
		TurnSensHigh: 1.0,
		TurnSensLow:  1.0,
	}
}

// Linearize maps a requested power onto the motor command that produces it.
// The polynomial is evaluated on |x| and the sign restored afterwards.
// Huge inputs stay finite in Horner form and saturate downstream.
func (c Constants) Linearize(x float64) float64 {
	if math.IsNaN(x) || math.Abs(x) < LINEAR_DEADBAND {
		return 0.0
	}
	if x < 0.0 {
		return -c.Linearize(-x)
	}
	if math.IsInf(x, 1) {
		x = math.MaxFloat64
	}

	return (((c.LinearCoeffA*x+c.LinearCoeffB)*x+c.LinearCoeffC)*x+c.LinearCoeffD)*x + c.LinearCoeffE
}

func (c Constants) Validate() error {
	values := map[string]float64{
		"linear_coeff_a": c.LinearCoeffA,
		"linear_coeff_b": c.LinearCoeffB,
		"linear_coeff_c": c.LinearCoeffC,
		"linear_coeff_d": c.LinearCoeffD,
		"linear_coeff_e": c.LinearCoeffE,
		"turn_sens_high": c.TurnSensHigh,
		"turn_sens_low":  c.TurnSensLow,
		"inertia_gain":   c.InertiaGain,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("constant %s must be finite, got %v", name, v)
		}
	}
	return nil
}

type ConstantsProvider interface {
	Constants() Constants
}

// StaticConstants provides a fixed set of constants.
type StaticConstants Constants

func (s StaticConstants) Constants() Constants {
	return Constants(s)
}
