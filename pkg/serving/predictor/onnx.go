package predictor

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXSpec points a manifest at a scikit-learn model exported to ONNX with
// zipmap disabled: a float input of shape [N, features], an int64 label
// output of shape [N] and optionally a float probability output [N, 2].
type ONNXSpec struct {
	Path              string `json:"path"`
	Input             string `json:"input"`
	LabelOutput       string `json:"label_output"`
	ProbabilityOutput string `json:"probability_output"`
}

// ortEnv manages the process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

type onnxSession struct {
	session  *ort.DynamicAdvancedSession
	width    int64
	withProb bool
}

// ONNXClassifier exposes only labels.
type ONNXClassifier struct {
	s *onnxSession
}

// ONNXProbabilityClassifier also exposes the probability output.
type ONNXProbabilityClassifier struct {
	ONNXClassifier
}

func newONNXModel(spec *ONNXSpec, dir string, width int, libPath string) (Classifier, error) {
	if spec == nil || spec.Path == "" {
		return nil, errors.New("onnx: manifest has no model path")
	}
	modelPath := spec.Path
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(dir, modelPath)
	}
	input := spec.Input
	if input == "" {
		input = "float_input"
	}
	labelOut := spec.LabelOutput
	if labelOut == "" {
		labelOut = "label"
	}

	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if !hasTensor(inputs, input) {
		return nil, fmt.Errorf("onnx: model has no input %q", input)
	}
	if !hasTensor(outputs, labelOut) {
		return nil, fmt.Errorf("onnx: model has no output %q", labelOut)
	}
	outputNames := []string{labelOut}
	if spec.ProbabilityOutput != "" {
		if !hasTensor(outputs, spec.ProbabilityOutput) {
			return nil, fmt.Errorf("onnx: model has no output %q", spec.ProbabilityOutput)
		}
		outputNames = append(outputNames, spec.ProbabilityOutput)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{input}, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	s := &onnxSession{session: session, width: int64(width), withProb: spec.ProbabilityOutput != ""}
	if s.withProb {
		return &ONNXProbabilityClassifier{ONNXClassifier{s: s}}, nil
	}
	return &ONNXClassifier{s: s}, nil
}

func hasTensor(infos []ort.InputOutputInfo, name string) bool {
	for _, info := range infos {
		if info.Name == name {
			return true
		}
	}
	return false
}

// run evaluates rows; probabilities are nil when the session has no
// probability output.
func (s *onnxSession) run(rows [][]float64) ([]int, [][]float64, error) {
	n := int64(len(rows))
	flat := make([]float32, 0, n*s.width)
	for _, row := range rows {
		if int64(len(row)) != s.width {
			return nil, nil, fmt.Errorf("onnx: row has %d features, model expects %d", len(row), s.width)
		}
		for _, v := range row {
			flat = append(flat, float32(v))
		}
	}

	in, err := ort.NewTensor(ort.NewShape(n, s.width), flat)
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer in.Destroy()

	labelsOut, err := ort.NewEmptyTensor[int64](ort.NewShape(n))
	if err != nil {
		return nil, nil, fmt.Errorf("onnx: failed to create label tensor: %w", err)
	}
	defer labelsOut.Destroy()

	outputs := []ort.Value{labelsOut}
	var probOut *ort.Tensor[float32]
	if s.withProb {
		probOut, err = ort.NewEmptyTensor[float32](ort.NewShape(n, 2))
		if err != nil {
			return nil, nil, fmt.Errorf("onnx: failed to create probability tensor: %w", err)
		}
		defer probOut.Destroy()
		outputs = append(outputs, probOut)
	}

	if err := s.session.Run([]ort.Value{in}, outputs); err != nil {
		return nil, nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	raw := labelsOut.GetData()
	labels := make([]int, len(raw))
	for i, l := range raw {
		labels[i] = int(l)
	}
	if probOut == nil {
		return labels, nil, nil
	}

	data := probOut.GetData()
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = []float64{float64(data[2*i]), float64(data[2*i+1])}
	}
	return labels, probs, nil
}

func (m *ONNXClassifier) PredictLabels(rows [][]float64) ([]int, error) {
	labels, _, err := m.s.run(rows)
	return labels, err
}

func (m *ONNXClassifier) Close() error {
	return m.s.session.Destroy()
}

func (m *ONNXProbabilityClassifier) PredictProba(rows [][]float64) ([][]float64, error) {
	_, probs, err := m.s.run(rows)
	return probs, err
}
