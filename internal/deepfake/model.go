package deepfake

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

const manifestFile = "bundle.yaml"

// Output kinds a model may emit.
const (
	OutputProbability = "probability"
	OutputLogit       = "logit"
)

// Manifest describes a model bundle directory.
type Manifest struct {
	Version      string `yaml:"version"`
	ModelFile    string `yaml:"model_file"`
	InputName    string `yaml:"input_name"`
	OutputName   string `yaml:"output_name"`
	FeatureCount int    `yaml:"feature_count"`
	Output       string `yaml:"output"`
}

// LoadManifest reads bundle.yaml from dir and applies defaults.
func LoadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse %s: %w", manifestFile, err)
	}

	if m.ModelFile == "" {
		m.ModelFile = "model.onnx"
	}
	if m.InputName == "" {
		m.InputName = "features"
	}
	if m.OutputName == "" {
		m.OutputName = "probability"
	}
	if m.FeatureCount == 0 {
		m.FeatureCount = FeatureCount
	}
	if m.Output == "" {
		m.Output = OutputProbability
	}

	if m.FeatureCount != FeatureCount {
		return Manifest{}, fmt.Errorf("bundle expects %d features; extractor produces %d", m.FeatureCount, FeatureCount)
	}
	if m.Output != OutputProbability && m.Output != OutputLogit {
		return Manifest{}, fmt.Errorf("unsupported model output %q", m.Output)
	}
	return m, nil
}

// Model wraps an ONNX Runtime session over a single-output binary classifier.
type Model struct {
	session  *ort.AdvancedSession
	manifest Manifest
	dir      string

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadModel initializes ONNX Runtime and creates a session for the bundle in dir.
func LoadModel(dir string) (*Model, error) {
	if dir == "" {
		return nil, errors.New("bundle dir is empty")
	}

	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}

	modelPath := filepath.Join(dir, manifest.ModelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	libPath := resolveSharedLibraryPath(dir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(manifest.FeatureCount)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{manifest.InputName},
		[]string{manifest.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Model{
		session:  session,
		manifest: manifest,
		dir:      dir,
		input:    input,
		output:   output,
	}, nil
}

// Predict returns the probability that features come from a synthetic voice.
func (m *Model) Predict(features Features) (float64, error) {
	if m == nil || m.session == nil {
		return 0, errors.New("deepfake model not initialized")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.input.GetData(), features[:])
	if err := m.session.Run(); err != nil {
		return 0, fmt.Errorf("onnx run: %w", err)
	}

	raw := m.output.GetData()
	if len(raw) == 0 {
		return 0, errors.New("onnx run produced no output")
	}
	return m.probability(raw[0]), nil
}

func (m *Model) probability(v float32) float64 {
	if m.manifest.Output == OutputLogit {
		return sigmoid(float64(v))
	}
	return float64(v)
}

// Version returns the bundle version from the manifest.
func (m *Model) Version() string { return m.manifest.Version }

// ModelFile returns the path of the loaded model.
func (m *Model) ModelFile() string { return filepath.Join(m.dir, m.manifest.ModelFile) }

// Close releases the session and tensors.
func (m *Model) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
	}
	if m.output != nil {
		errs = append(errs, m.output.Destroy())
	}
	return errors.Join(errs...)
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared library.
// ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common names and locations are tried.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
