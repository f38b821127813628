package predictor

import (
	"errors"
	"fmt"
	"math"

	"github.com/meddiag/platform/pkg/features"
)

// Labels produced by every supported model. Index 0 of a probability row is
// the negative class, index 1 the positive class.
const (
	Negative = 0
	Positive = 1
)

// Classifier is the mandatory model capability: one label per input row.
type Classifier interface {
	PredictLabels(rows [][]float64) ([]int, error)
}

// ProbabilityEstimator is the optional capability: one class distribution
// per input row, ordered [negative, positive].
type ProbabilityEstimator interface {
	PredictProba(rows [][]float64) ([][]float64, error)
}

var (
	errMalformedOutput = errors.New("malformed model output")
	errUnexpectedLabel = errors.New("unexpected label")
	errBadProbability  = errors.New("probability outside [0, 1]")
)

// PredictionFailedError wraps anything that went wrong inside the model.
type PredictionFailedError struct {
	Disease features.Code
	Err     error
}

func (e *PredictionFailedError) Error() string {
	return fmt.Sprintf("%s: prediction failed: %v", e.Disease, e.Err)
}

func (e *PredictionFailedError) Unwrap() error {
	return e.Err
}

// Messages holds the localized outcome strings for one disease.
type Messages struct {
	Positive string
	Negative string
}

type Result struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
	Message     string  `json:"message"`
}

func (r Result) IsPositive() bool {
	return r.Label == Positive
}

// Predictor evaluates one loaded model. It holds no mutable state and is safe
// for concurrent use when the model is.
type Predictor struct {
	disease    features.Code
	classifier Classifier
	estimator  ProbabilityEstimator
}

// New wraps model. Whether it can report probabilities is decided here, once.
func New(disease features.Code, model Classifier) *Predictor {
	p := &Predictor{disease: disease, classifier: model}
	if estimator, ok := model.(ProbabilityEstimator); ok {
		p.estimator = estimator
	}
	return p
}

func (p *Predictor) Disease() features.Code {
	return p.disease
}

func (p *Predictor) HasProbability() bool {
	return p.estimator != nil
}

// Predict scores a single assembled vector. Models without a probability
// output report 1.0 for a positive label and 0.0 otherwise.
func (p *Predictor) Predict(vector features.Vector, messages Messages) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{}
			err = p.fail(fmt.Errorf("model panicked: %v", r))
		}
	}()

	rows := [][]float64{append([]float64(nil), vector...)}

	labels, err := p.classifier.PredictLabels(rows)
	if err != nil {
		return Result{}, p.fail(err)
	}
	if len(labels) != 1 {
		return Result{}, p.fail(fmt.Errorf("%w: %d labels for 1 row", errMalformedOutput, len(labels)))
	}
	label := labels[0]
	if label != Negative && label != Positive {
		return Result{}, p.fail(fmt.Errorf("%w: %d", errUnexpectedLabel, label))
	}

	probability := 0.0
	if label == Positive {
		probability = 1.0
	}
	if p.estimator != nil {
		probability, err = p.positiveProbability(rows)
		if err != nil {
			return Result{}, p.fail(err)
		}
	}

	message := messages.Negative
	if label == Positive {
		message = messages.Positive
	}

	return Result{Label: label, Probability: probability, Message: message}, nil
}

func (p *Predictor) positiveProbability(rows [][]float64) (float64, error) {
	distributions, err := p.estimator.PredictProba(rows)
	if err != nil {
		return 0, err
	}
	if len(distributions) != 1 || len(distributions[0]) != 2 {
		return 0, fmt.Errorf("%w: expected one two-class distribution", errMalformedOutput)
	}
	value := distributions[0][Positive]
	if math.IsNaN(value) || value < 0 || value > 1 {
		return 0, fmt.Errorf("%w: %v", errBadProbability, value)
	}
	return value, nil
}

func (p *Predictor) fail(err error) error {
	return &PredictionFailedError{Disease: p.disease, Err: err}
}
