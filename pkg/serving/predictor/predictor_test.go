package predictor

import (
	"errors"
	"testing"

	"github.com/meddiag/platform/pkg/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMessages = Messages{Positive: "at risk", Negative: "not at risk"}

type labelOnly struct {
	label int
	err   error
	rows  [][]float64
}

func (m *labelOnly) PredictLabels(rows [][]float64) ([]int, error) {
	m.rows = rows
	if m.err != nil {
		return nil, m.err
	}
	return []int{m.label}, nil
}

type withProba struct {
	labelOnly
	dist []float64
	err  error
}

func (m *withProba) PredictProba(rows [][]float64) ([][]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return [][]float64{m.dist}, nil
}

type panicking struct{}

func (panicking) PredictLabels([][]float64) ([]int, error) {
	panic("index out of range")
}

func TestFallbackProbabilityPositive(t *testing.T) {
	p := New(features.Diabetes, &labelOnly{label: 1})
	assert.False(t, p.HasProbability())

	result, err := p.Predict(features.Vector{1, 2}, testMessages)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Label)
	assert.Equal(t, 1.0, result.Probability)
	assert.Equal(t, "at risk", result.Message)
	assert.True(t, result.IsPositive())
}

func TestFallbackProbabilityNegative(t *testing.T) {
	result, err := New(features.Diabetes, &labelOnly{label: 0}).Predict(features.Vector{1, 2}, testMessages)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Label)
	assert.Equal(t, 0.0, result.Probability)
	assert.Equal(t, "not at risk", result.Message)
}

func TestProbabilityTakesPositiveClass(t *testing.T) {
	model := &withProba{labelOnly: labelOnly{label: 0}, dist: []float64{0.7, 0.3}}
	p := New(features.Heart, model)
	require.True(t, p.HasProbability())

	result, err := p.Predict(features.Vector{5}, testMessages)
	require.NoError(t, err)
	assert.Equal(t, 0.3, result.Probability)
	assert.Equal(t, "not at risk", result.Message)
}

func TestPredictSendsSingleRowCopy(t *testing.T) {
	model := &labelOnly{label: 0}
	vector := features.Vector{1, 2, 3}
	_, err := New(features.Heart, model).Predict(vector, testMessages)
	require.NoError(t, err)

	require.Len(t, model.rows, 1)
	assert.Equal(t, []float64{1, 2, 3}, model.rows[0])
	model.rows[0][0] = 42
	assert.Equal(t, 1.0, vector[0])
}

func TestModelErrorsSurfaceAsPredictionFailed(t *testing.T) {
	boom := errors.New("boom")
	cases := map[string]Classifier{
		"label error":    &labelOnly{err: boom},
		"proba error":    &withProba{labelOnly: labelOnly{label: 1}, err: boom},
		"bad label":      &labelOnly{label: 2},
		"bad proba":      &withProba{labelOnly: labelOnly{label: 1}, dist: []float64{-0.2, 1.2}},
		"three classes":  &withProba{labelOnly: labelOnly{label: 1}, dist: []float64{0.1, 0.2, 0.7}},
		"model panicked": panicking{},
	}
	for name, model := range cases {
		result, err := New(features.Parkinsons, model).Predict(features.Vector{1}, testMessages)

		var failed *PredictionFailedError
		require.True(t, errors.As(err, &failed), name)
		assert.Equal(t, features.Parkinsons, failed.Disease, name)
		assert.Equal(t, Result{}, result, name)
	}

	_, err := New(features.Parkinsons, &labelOnly{err: boom}).Predict(features.Vector{1}, testMessages)
	assert.ErrorIs(t, err, boom)
}
