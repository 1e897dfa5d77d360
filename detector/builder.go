package detector

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/inference/providers"
	"github.com/nvr-ai/cam-detector/models/postprocess"
	"github.com/nvr-ai/cam-detector/models/yolox"
)

// Config represents the detector configuration.
type Config struct {
	// ModelPath is the ONNX model asset.
	ModelPath string `json:"modelPath" yaml:"modelPath" validate:"required"`
	// Provider is the provider loaded at startup.
	Provider providers.ExecutionProvider `json:"provider" yaml:"provider" validate:"oneof=cpu webgl wasm webgpu"`

	Decoder yolox.Config            `json:"decoder" yaml:"decoder"`
	NMS     postprocess.NMSConfig   `json:"nms" yaml:"nms"`
	Runtime providers.RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// DefaultConfig returns the shipped thresholds on the cpu provider.
func DefaultConfig() Config {
	return Config{
		Provider: providers.CPU,
		Decoder:  yolox.DefaultConfig(),
		NMS:      postprocess.DefaultNMSConfig(yolox.NumClasses),
		Runtime:  providers.DefaultRuntimeConfig(),
	}
}

// Builder assembles a Detector with a fluent API. The first error sticks.
type Builder struct {
	cfg     Config
	factory providers.SessionFactory
	log     logrus.FieldLogger
	err     error
}

// NewBuilder creates a builder seeded with DefaultConfig.
//
// @example
//
//	det, err := detector.NewBuilder().
//	    WithConfig(cfg).
//	    WithLogger(logger).
//	    Build()
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig validates and sets the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	if b.HasError() {
		return b
	}
	if err := validator.New().Struct(cfg); err != nil {
		b.err = errors.Wrap(err, "invalid detector config")
		return b
	}
	b.cfg = cfg
	return b
}

// WithSessionFactory replaces the ONNX Runtime session factory.
func (b *Builder) WithSessionFactory(f providers.SessionFactory) *Builder {
	if b.HasError() {
		return b
	}
	if f == nil {
		b.err = errors.New("session factory is nil")
		return b
	}
	b.factory = f
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	if b.HasError() {
		return b
	}
	b.log = log
	return b
}

// HasError checks if the builder has errors.
func (b *Builder) HasError() bool {
	return b.err != nil
}

// Build creates the detector in the Unloaded state.
//
// Returns:
//   - *Detector: The detector. Call LoadModel before Detect.
//   - error: The first configuration error.
func (b *Builder) Build() (*Detector, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.cfg.ModelPath == "" {
		return nil, errors.New("model path not configured")
	}

	if b.factory != nil {
		return newDetector(b.cfg, b.factory, nil, b.log), nil
	}
	ort := providers.NewORTFactory(b.cfg.Runtime, b.log)
	return newDetector(b.cfg, ort, ort, b.log), nil
}

// MustBuild builds the detector and panics if there is an error.
func (b *Builder) MustBuild() *Detector {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
