package features

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleDiabetesScenario(t *testing.T) {
	submission := Submission{"Pregnancies": 2, "Glucose": 150, "BloodPressure": 80, "BMI": 28.5, "Age": 45}
	vector, err := Assemble(diabetesSchema(t), submission)
	require.NoError(t, err)
	assert.Equal(t, Vector{2, 150, 80, 20.0, 80.0, 28.5, 0.5, 45}, vector)
}

func TestAssembleFullSubmissionIgnoresDefaults(t *testing.T) {
	for _, code := range Codes {
		schema, err := SchemaFor(string(code))
		require.NoError(t, err)

		submission := Submission{}
		want := make(Vector, schema.Len())
		for i, name := range schema.Order() {
			value := float64(i)*1.5 + 1000
			submission[name] = value
			want[i] = value
		}
		got, err := Assemble(schema, submission)
		require.NoError(t, err)
		assert.Equal(t, want, got, code)
	}
}

func TestAssemblePreservesLength(t *testing.T) {
	schema, err := NewSchema(Parkinsons, []string{"a", "b", "c"}, map[string]float64{"a": 1, "b": 2, "c": 3})
	require.NoError(t, err)

	vector, err := Assemble(schema, Submission{})
	require.NoError(t, err)
	assert.Len(t, vector, schema.Len())
	assert.Equal(t, Vector{1, 2, 3}, vector)
}

func TestAssembleIsDeterministic(t *testing.T) {
	submission := Submission{"Pregnancies": "3", "Glucose": json.Number("121.7"), "BloodPressure": int64(70), "BMI": float32(31.2), "Age": uint8(52)}
	first, err := Assemble(diabetesSchema(t), submission)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Assemble(diabetesSchema(t), submission)
		require.NoError(t, err)
		for j := range first {
			assert.Equal(t, math.Float64bits(first[j]), math.Float64bits(again[j]))
		}
	}
}

func TestAssembleCoercesStrings(t *testing.T) {
	submission := Submission{"Pregnancies": " 1 ", "Glucose": "99.5", "BloodPressure": "70", "BMI": "22", "Age": "33"}
	vector, err := Assemble(diabetesSchema(t), submission)
	require.NoError(t, err)
	assert.Equal(t, 99.5, vector[1])
	assert.Equal(t, 1.0, vector[0])
}

func TestAssembleRejectsNonNumeric(t *testing.T) {
	cases := map[string]interface{}{
		"text":   "high",
		"bool":   true,
		"nil":    nil,
		"nan":    "NaN",
		"inf":    math.Inf(1),
		"object": map[string]interface{}{"v": 1},
	}
	for label, bad := range cases {
		submission := Submission{"Pregnancies": 1, "Glucose": bad, "BloodPressure": 70, "BMI": 22, "Age": 33}
		_, err := Assemble(diabetesSchema(t), submission)

		var nonNumeric *NonNumericFeatureError
		require.True(t, errors.As(err, &nonNumeric), label)
		assert.Equal(t, "Glucose", nonNumeric.Name, label)
		assert.True(t, IsValidationError(err), label)
	}
}

func TestAssembleWithoutValidateFails(t *testing.T) {
	_, err := Assemble(diabetesSchema(t), Submission{"Pregnancies": 1})

	var incomplete *IncompleteAssemblyError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "Glucose", incomplete.Name)
	assert.False(t, IsValidationError(err))
}

func TestAssembleIgnoresUnknownKeys(t *testing.T) {
	submission := Submission{"Pregnancies": 2, "Glucose": 150, "BloodPressure": 80, "BMI": 28.5, "Age": 45, "Cholesterol": 180}
	vector, err := Assemble(diabetesSchema(t), submission)
	require.NoError(t, err)
	assert.Len(t, vector, 8)
}

func TestVectorNamed(t *testing.T) {
	schema := diabetesSchema(t)
	vector := Vector{2, 150, 80, 20, 80, 28.5, 0.5, 45}
	named := vector.Named(schema)
	assert.Equal(t, 150.0, named["Glucose"])
	assert.Len(t, named, 8)
}
