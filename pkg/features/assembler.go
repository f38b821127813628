package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector is the model input: one value per schema feature, in schema order.
type Vector []float64

var errNotFinite = errors.New("value is not finite")

// Assemble builds the model input for submission. Submitted values win over
// defaults. It assumes Validate has passed and fails with
// IncompleteAssemblyError otherwise.
func Assemble(schema *Schema, submission Submission) (Vector, error) {
	vector := make(Vector, len(schema.order))
	for i, name := range schema.order {
		raw, ok := submission[name]
		if !ok {
			value, hasDefault := schema.defaults[name]
			if !hasDefault {
				return nil, &IncompleteAssemblyError{Disease: schema.code, Name: name}
			}
			vector[i] = value
			continue
		}
		value, err := toFloat(raw)
		if err != nil {
			return nil, &NonNumericFeatureError{Name: name, Value: raw, Err: err}
		}
		vector[i] = value
	}
	return vector, nil
}

// Named pairs every value with its feature name, for logging and auditing.
func (v Vector) Named(schema *Schema) map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for i, name := range schema.order {
		if i < len(v) {
			out[name] = v[i]
		}
	}
	return out
}

func toFloat(value interface{}) (float64, error) {
	var (
		f   float64
		err error
	)
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}
