package linear

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDimension = errors.New("coefficient count does not match sample width")
	ErrNonFinite = errors.New("non-finite value")
)

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Validate checks that the weights can score samples of the given width.
func (w Weights) Validate(width int) error {
	if len(w.Coefficients) != width {
		return fmt.Errorf("%w: %d coefficients, %d features", ErrDimension, len(w.Coefficients), width)
	}
	if !finite(w.Bias) {
		return fmt.Errorf("%w: bias %v", ErrNonFinite, w.Bias)
	}
	for i, c := range w.Coefficients {
		if !finite(c) {
			return fmt.Errorf("%w: coefficient %d is %v", ErrNonFinite, i, c)
		}
	}
	return nil
}

// Decision returns the raw linear score w·x + b. A score that overflows or
// is NaN is an error, never a label.
func Decision(weights Weights, sample []float64) (float64, error) {
	if len(sample) != len(weights.Coefficients) {
		return 0, fmt.Errorf("%w: %d coefficients, %d features", ErrDimension, len(weights.Coefficients), len(sample))
	}
	score := dot(weights.Coefficients, sample) + weights.Bias
	if !finite(score) {
		return 0, fmt.Errorf("%w: decision score %v", ErrNonFinite, score)
	}
	return score, nil
}

// Probability returns the logistic probability of the positive class.
func Probability(weights Weights, sample []float64) (float64, error) {
	score, err := Decision(weights, sample)
	if err != nil {
		return 0, err
	}
	return sigmoid(score), nil
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
