package predictor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/features"
)

// FeatureOrderMismatchError means a model was trained on a different feature
// order than the schema declares. Predictions would be silently wrong, so
// loading stops.
type FeatureOrderMismatchError struct {
	Disease  features.Code
	Expected []string
	Declared []string
}

func (e *FeatureOrderMismatchError) Error() string {
	return fmt.Sprintf("%s: model feature order [%s] does not match schema [%s]",
		e.Disease, strings.Join(e.Declared, ", "), strings.Join(e.Expected, ", "))
}

type Options struct {
	Dir            string
	ModelNames     map[features.Code]string
	ONNXRuntimeLib string
}

// Registry holds one predictor per disease, loaded once at startup.
type Registry struct {
	predictors map[features.Code]*Predictor
	closers    []io.Closer
}

// NewRegistry wraps already built predictors.
func NewRegistry(predictors ...*Predictor) *Registry {
	r := &Registry{predictors: make(map[features.Code]*Predictor, len(predictors))}
	for _, p := range predictors {
		r.predictors[p.disease] = p
	}
	return r
}

// Load reads the manifest of every disease in schemas from opts.Dir and
// checks each declared feature list against the schema order.
func Load(schemas *features.Registry, opts Options) (_ *Registry, retErr error) {
	r := &Registry{predictors: make(map[features.Code]*Predictor, len(features.Codes))}
	defer func() {
		if retErr != nil {
			_ = r.Close()
		}
	}()

	for _, code := range features.Codes {
		schema, err := schemas.SchemaFor(string(code))
		if err != nil {
			return nil, err
		}
		name, ok := opts.ModelNames[code]
		if !ok || name == "" {
			return nil, fmt.Errorf("no model name configured for %s", code)
		}

		path := artifactPath(opts.Dir, name)
		artifact, err := LoadArtifact(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s model: %w", code, err)
		}
		if err := CheckFeatureOrder(schema, artifact.Model.FeatureNames); err != nil {
			return nil, err
		}

		model, err := buildModel(artifact.Model, opts)
		if err != nil {
			return nil, fmt.Errorf("building %s model: %w", code, err)
		}
		if closer, ok := model.(io.Closer); ok {
			r.closers = append(r.closers, closer)
		}

		p := New(code, model)
		r.predictors[code] = p
		logger.Log.WithFields(map[string]interface{}{
			"disease":     code,
			"algorithm":   artifact.Model.Algorithm,
			"version":     artifact.Model.Version,
			"features":    len(artifact.Model.FeatureNames),
			"probability": p.HasProbability(),
		}).Info("Model loaded")
	}
	return r, nil
}

func buildModel(spec ModelSpec, opts Options) (Classifier, error) {
	if spec.Algorithm == AlgorithmONNX {
		return newONNXModel(spec.ONNX, opts.Dir, len(spec.FeatureNames), opts.ONNXRuntimeLib)
	}
	return buildLinear(spec)
}

// CheckFeatureOrder fails unless declared equals the schema order exactly.
func CheckFeatureOrder(schema *features.Schema, declared []string) error {
	expected := schema.Order()
	mismatch := len(expected) != len(declared)
	for i := 0; !mismatch && i < len(expected); i++ {
		mismatch = expected[i] != declared[i]
	}
	if mismatch {
		return &FeatureOrderMismatchError{
			Disease:  schema.Code(),
			Expected: expected,
			Declared: append([]string(nil), declared...),
		}
	}
	return nil
}

func (r *Registry) Get(code features.Code) (*Predictor, error) {
	p, ok := r.predictors[code]
	if !ok {
		return nil, &features.UnknownDiseaseError{Code: string(code)}
	}
	return p, nil
}

func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
