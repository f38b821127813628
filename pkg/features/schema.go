package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a disease model.
type Code string

const (
	Diabetes   Code = "DIAB"
	Heart      Code = "HEART"
	Parkinsons Code = "PARK"
)

// Codes is the fixed set of supported diseases.
var Codes = []Code{Diabetes, Heart, Parkinsons}

var (
	errEmptyOrder    = errors.New("feature order is empty")
	errDuplicateName = errors.New("duplicate feature name")
	errOrphanDefault = errors.New("default declared for a feature outside the order")
	errBlankFeature  = errors.New("blank feature name")
)

// aliases maps the names used by routes and the CLI to disease codes.
var aliases = map[string]Code{
	"diabetes":   Diabetes,
	"heart":      Heart,
	"parkinson":  Parkinsons,
	"parkinsons": Parkinsons,
}

// ResolveAlias returns the code for a route name such as "heart". Anything
// else is returned unchanged for ParseCode to judge.
func ResolveAlias(raw string) string {
	if code, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return string(code)
	}
	return raw
}

// ParseCode normalizes raw and checks it against the supported set.
func ParseCode(raw string) (Code, error) {
	code := Code(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Codes {
		if code == known {
			return code, nil
		}
	}
	return "", &UnknownDiseaseError{Code: raw}
}

// Schema is the ordered input contract of one disease model. It is immutable
// once built; accessors hand out copies.
type Schema struct {
	code     Code
	order    []string
	defaults map[string]float64
}

func NewSchema(code Code, order []string, defaults map[string]float64) (*Schema, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("schema %s: %w", code, errEmptyOrder)
	}
	seen := make(map[string]struct{}, len(order))
	for _, name := range order {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("schema %s: %w", code, errBlankFeature)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("schema %s: %w: %s", code, errDuplicateName, name)
		}
		seen[name] = struct{}{}
	}

	copied := make(map[string]float64, len(defaults))
	for name, value := range defaults {
		if _, ok := seen[name]; !ok {
			return nil, fmt.Errorf("schema %s: %w: %s", code, errOrphanDefault, name)
		}
		copied[name] = value
	}

	return &Schema{
		code:     code,
		order:    append([]string(nil), order...),
		defaults: copied,
	}, nil
}

func (s *Schema) Code() Code {
	return s.code
}

// Order returns the positional feature order the model expects.
func (s *Schema) Order() []string {
	return append([]string(nil), s.order...)
}

func (s *Schema) Len() int {
	return len(s.order)
}

func (s *Schema) Default(name string) (float64, bool) {
	value, ok := s.defaults[name]
	return value, ok
}

func (s *Schema) Defaults() map[string]float64 {
	out := make(map[string]float64, len(s.defaults))
	for name, value := range s.defaults {
		out[name] = value
	}
	return out
}

// Required returns, in order, the features that have no default.
func (s *Schema) Required() []string {
	var required []string
	for _, name := range s.order {
		if _, ok := s.defaults[name]; !ok {
			required = append(required, name)
		}
	}
	return required
}

// Registry maps every supported disease to its schema.
type Registry struct {
	schemas map[Code]*Schema
}

func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[Code]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, err := ParseCode(string(s.code)); err != nil {
			return nil, err
		}
		if _, dup := r.schemas[s.code]; dup {
			return nil, fmt.Errorf("schema %s declared twice", s.code)
		}
		r.schemas[s.code] = s
	}
	var missing []string
	for _, code := range Codes {
		if _, ok := r.schemas[code]; !ok {
			missing = append(missing, string(code))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("no schema for %s", strings.Join(missing, ", "))
	}
	return r, nil
}

func (r *Registry) SchemaFor(code string) (*Schema, error) {
	parsed, err := ParseCode(code)
	if err != nil {
		return nil, err
	}
	return r.schemas[parsed], nil
}

// SchemaFor looks code up in the built-in tables.
func SchemaFor(code string) (*Schema, error) {
	return builtin.SchemaFor(code)
}

// DefaultRegistry returns the built-in schemas.
func DefaultRegistry() *Registry {
	return builtin
}

var builtin = mustRegistry(
	mustSchema(Diabetes,
		[]string{"Pregnancies", "Glucose", "BloodPressure", "SkinThickness", "Insulin", "BMI", "DiabetesPedigreeFunction", "Age"},
		map[string]float64{
			"SkinThickness":            20.0,
			"Insulin":                  80.0,
			"DiabetesPedigreeFunction": 0.5,
		}),
	mustSchema(Heart,
		[]string{"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg", "thalach", "exang", "oldpeak", "slope", "ca", "thal"},
		map[string]float64{
			"fbs":     0.0,
			"restecg": 0.0,
			"slope":   1.0,
			"thal":    2.0,
		}),
	mustSchema(Parkinsons,
		[]string{
			"fo", "fhi", "flo", "jitter_percent", "jitter_abs", "RAP", "PPQ", "DDP",
			"shimmer", "shimmer_dB", "APQ3", "APQ5", "APQ", "DDA", "NHR", "HNR",
			"RPDE", "DFA", "spread1", "spread2", "D2", "PPE",
		},
		map[string]float64{
			"flo":        100.0,
			"jitter_abs": 0.0001,
			"RAP":        0.003,
			"PPQ":        0.003,
			"DDP":        0.01,
			"shimmer_dB": 0.02,
			"APQ3":       0.015,
			"APQ5":       0.02,
			"APQ":        0.025,
			"DDA":        0.04,
			"RPDE":       0.5,
			"DFA":        0.75,
			"spread1":    -5.0,
			"spread2":    0.5,
			"D2":         2.0,
		}),
)

func mustSchema(code Code, order []string, defaults map[string]float64) *Schema {
	s, err := NewSchema(code, order, defaults)
	if err != nil {
		panic(err)
	}
	return s
}

func mustRegistry(schemas ...*Schema) *Registry {
	r, err := NewRegistry(schemas...)
	if err != nil {
		panic(err)
	}
	return r
}
