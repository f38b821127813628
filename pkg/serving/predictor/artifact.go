package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/meddiag/platform/pkg/ml/linear"
)

const (
	AlgorithmLogistic  = "logistic_regression"
	AlgorithmLinearSVM = "linear_svm"
	AlgorithmONNX      = "onnx"
)

var (
	ErrClassOrder         = errors.New("model classes must be [0, 1]")
	ErrUnknownAlgorithm   = errors.New("unknown model algorithm")
	ErrMissingFeatureList = errors.New("artifact missing feature names")
	ErrThreshold          = errors.New("threshold must be within (0, 1)")
)

// Artifact is the JSON manifest shipped next to every model.
type Artifact struct {
	Model ModelSpec `json:"model"`
}

type ModelSpec struct {
	Type         string         `json:"type"`
	Algorithm    string         `json:"algorithm"`
	Version      string         `json:"version"`
	FeatureNames []string       `json:"feature_names"`
	Classes      []int          `json:"classes"`
	Threshold    float64        `json:"threshold"`
	Weights      linear.Weights `json:"weights"`
	ONNX         *ONNXSpec      `json:"onnx,omitempty"`
}

func artifactPath(dir, model string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_latest.json", model))
}

func LoadArtifact(path string) (Artifact, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Artifact{}, err
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("decoding artifact %s: %w", path, err)
	}
	if len(artifact.Model.FeatureNames) == 0 {
		return Artifact{}, fmt.Errorf("%s: %w", path, ErrMissingFeatureList)
	}
	if err := checkClasses(artifact.Model.Classes); err != nil {
		return Artifact{}, fmt.Errorf("%s: %w", path, err)
	}
	return artifact, nil
}

func checkClasses(classes []int) error {
	if len(classes) == 0 {
		return fmt.Errorf("%w: classes not declared", ErrClassOrder)
	}
	if len(classes) != 2 || classes[0] != Negative || classes[1] != Positive {
		return fmt.Errorf("%w, got %v", ErrClassOrder, classes)
	}
	return nil
}

// buildLinear turns the weights of a manifest into a model.
func buildLinear(spec ModelSpec) (Classifier, error) {
	if err := spec.Weights.Validate(len(spec.FeatureNames)); err != nil {
		return nil, err
	}
	switch spec.Algorithm {
	case AlgorithmLogistic:
		threshold := spec.Threshold
		if threshold == 0 {
			threshold = 0.5
		}
		if math.IsNaN(threshold) || threshold <= 0 || threshold >= 1 {
			return nil, fmt.Errorf("%w, got %v", ErrThreshold, spec.Threshold)
		}
		return &LogisticModel{weights: spec.Weights, threshold: threshold}, nil
	case AlgorithmLinearSVM:
		return &LinearSVMModel{weights: spec.Weights}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, spec.Algorithm)
	}
}

// LogisticModel labels by thresholding the logistic probability.
type LogisticModel struct {
	weights   linear.Weights
	threshold float64
}

func NewLogisticModel(weights linear.Weights, threshold float64) *LogisticModel {
	return &LogisticModel{weights: weights, threshold: threshold}
}

func (m *LogisticModel) PredictLabels(rows [][]float64) ([]int, error) {
	probas, err := m.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(probas))
	for i, dist := range probas {
		if dist[Positive] >= m.threshold {
			labels[i] = Positive
		}
	}
	return labels, nil
}

func (m *LogisticModel) PredictProba(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		p, err := linear.Probability(m.weights, row)
		if err != nil {
			return nil, err
		}
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// LinearSVMModel only exposes labels: a margin is not a probability.
type LinearSVMModel struct {
	weights linear.Weights
}

func NewLinearSVMModel(weights linear.Weights) *LinearSVMModel {
	return &LinearSVMModel{weights: weights}
}

func (m *LinearSVMModel) PredictLabels(rows [][]float64) ([]int, error) {
	labels := make([]int, len(rows))
	for i, row := range rows {
		score, err := linear.Decision(m.weights, row)
		if err != nil {
			return nil, err
		}
		if score > 0 {
			labels[i] = Positive
		}
	}
	return labels, nil
}
