// Package calcs fits drivetrain tuning constants from measured data.
package calcs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/CodedInternet/godrivetrain/onboard/drive"
	"gonum.org/v1/gonum/mat"
)

const (
	MIN_SAMPLES = 5
	fitOrder    = 4
)

var (
	ErrTooFewSamples = errors.New("at least 5 samples are needed to fit a quartic")
	ErrDegenerate    = errors.New("samples need at least 5 distinct speeds")
)

// Sample is a motor command and the normalised speed it produced, measured
// at steady state.
type Sample struct {
	Command float64
	Speed   float64
}

// Fit is a quartic mapping a wanted speed on to the command that produces it.
// Coefficients run from the fourth power down to the constant term.
type Fit struct {
	Coefficients [fitOrder + 1]float64
	RMS          float64 // residual over the samples used
}

// Apply copies the fitted coefficients into c.
func (f Fit) Apply(c drive.Constants) drive.Constants {
	c.LinearCoeffA = f.Coefficients[0]
	c.LinearCoeffB = f.Coefficients[1]
	c.LinearCoeffC = f.Coefficients[2]
	c.LinearCoeffD = f.Coefficients[3]
	c.LinearCoeffE = f.Coefficients[4]
	return c
}

func (f Fit) eval(x float64) (y float64) {
	for _, coeff := range f.Coefficients {
		y = y*x + coeff
	}
	return
}

// FitLinearization least squares fits command against speed. Samples are
// folded on to the positive half since linearization is odd symmetric;
// samples below the dead band are dropped.
func FitLinearization(samples []Sample) (fit Fit, err error) {
	var speeds, commands []float64
	distinct := make(map[float64]bool)

	for _, s := range samples {
		speed, command := math.Abs(s.Speed), math.Abs(s.Command)
		if math.IsNaN(speed) || math.IsNaN(command) || math.IsInf(speed, 0) || math.IsInf(command, 0) {
			return fit, fmt.Errorf("sample %v is not finite", s)
		}
		if speed < drive.LINEAR_DEADBAND {
			continue
		}
		speeds = append(speeds, speed)
		commands = append(commands, command)
		distinct[speed] = true
	}

	if len(speeds) < MIN_SAMPLES {
		return fit, ErrTooFewSamples
	}
	if len(distinct) < MIN_SAMPLES {
		return fit, ErrDegenerate
	}

	// vandermonde rows: s^4 s^3 s^2 s 1
	a := mat.NewDense(len(speeds), fitOrder+1, nil)
	for i, s := range speeds {
		for j := 0; j <= fitOrder; j++ {
			a.Set(i, j, math.Pow(s, float64(fitOrder-j)))
		}
	}
	b := mat.NewVecDense(len(commands), commands)

	var x mat.VecDense
	if err = x.SolveVec(a, b); err != nil {
		return fit, fmt.Errorf("fitting linearization: %w", err)
	}

	for j := range fit.Coefficients {
		fit.Coefficients[j] = x.AtVec(j)
	}

	var sum float64
	for i, s := range speeds {
		r := fit.eval(s) - commands[i]
		sum += r * r
	}
	fit.RMS = math.Sqrt(sum / float64(len(speeds)))

	return fit, nil
}

// ReadSamples reads "command,speed" records. A leading header row and lines
// starting with # are skipped.
func ReadSamples(r io.Reader) (samples []Sample, err error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		command, cmdErr := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		speed, speedErr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if cmdErr != nil || speedErr != nil {
			if len(samples) == 0 && line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("record %d: %q is not a command,speed pair", line, record)
		}

		samples = append(samples, Sample{Command: command, Speed: speed})
	}

	return samples, nil
}
