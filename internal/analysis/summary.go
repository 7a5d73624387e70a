package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	RMS    float64
}

func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("summary of empty trace: %w", dynamo.ErrInvalidParameter)
	}
	s := Summary{
		N:    len(samples),
		Mean: stat.Mean(samples, nil),
		Min:  floats.Min(samples),
		Max:  floats.Max(samples),
		RMS:  floats.Norm(samples, 2) / math.Sqrt(float64(len(samples))),
	}
	if len(samples) > 1 {
		s.StdDev = stat.StdDev(samples, nil)
	}
	return s, nil
}
