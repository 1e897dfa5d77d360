// Package config - File, dotenv and environment configuration for the detector binaries.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/cam-detector/capture"
	"github.com/nvr-ai/cam-detector/detector"
	"github.com/nvr-ai/cam-detector/inference/providers"
	"github.com/nvr-ai/cam-detector/logging"
	"github.com/nvr-ai/cam-detector/models/postprocess"
	"github.com/nvr-ai/cam-detector/models/yolox"
)

// Environment variables overriding file values.
const (
	EnvModelPath         = "CAMDET_MODEL_PATH"
	EnvProvider          = "CAMDET_PROVIDER"
	EnvLogLevel          = "CAMDET_LOG_LEVEL"
	EnvLogFile           = "CAMDET_LOG_FILE"
	EnvSharedLibraryPath = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

// ModelConfig selects the model asset and the provider it starts on.
type ModelConfig struct {
	Path     string                      `json:"path" yaml:"path" validate:"required"`
	Provider providers.ExecutionProvider `json:"provider" yaml:"provider" validate:"oneof=cpu webgl wasm webgpu"`
}

// CaptureConfig controls automatic best-frame capture.
type CaptureConfig struct {
	// Auto enables capture when the trigger fires.
	Auto bool `json:"auto" yaml:"auto"`
	// Dir receives captured JPEGs.
	Dir string `json:"dir" yaml:"dir"`
	// JPEGQuality is the quality captures are written at.
	JPEGQuality int                 `json:"jpegQuality" yaml:"jpegQuality" validate:"gte=1,lte=100"`
	Trigger     capture.Trigger     `json:"trigger" yaml:"trigger"`
	Burst       capture.BurstConfig `json:"burst" yaml:"burst"`
}

// Config is the complete configuration of a detector binary.
type Config struct {
	Model   ModelConfig             `json:"model" yaml:"model"`
	Decoder yolox.Config            `json:"decoder" yaml:"decoder"`
	NMS     postprocess.NMSConfig   `json:"nms" yaml:"nms"`
	Runtime providers.RuntimeConfig `json:"runtime" yaml:"runtime"`
	Capture CaptureConfig           `json:"capture" yaml:"capture"`
	Log     logging.Config          `json:"log" yaml:"log"`
}

// Default returns the built-in configuration. Model.Path is empty and must be supplied.
func Default() Config {
	d := detector.DefaultConfig()
	return Config{
		Model: ModelConfig{
			Path:     d.ModelPath,
			Provider: d.Provider,
		},
		Decoder: d.Decoder,
		NMS:     d.NMS,
		Runtime: d.Runtime,
		Capture: CaptureConfig{
			Dir:         ".",
			JPEGQuality: capture.DefaultJPEGQuality,
			Trigger:     capture.NewTrigger(),
			Burst:       capture.DefaultBurstConfig(),
		},
		Log: logging.DefaultConfig(),
	}
}

// Load builds the configuration in layers: defaults, the YAML file at path, a .env file
// in the working directory, then the process environment.
//
// Arguments:
//   - path: The YAML file. Empty skips the file layer.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if a file cannot be read or parsed, or validation fails.
//
// @example
//
//	cfg, err := config.Load("camdet.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	det, err := detector.NewBuilder().WithConfig(cfg.Detector()).Build()
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the process environment without overriding
// variables already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides fields from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvModelPath); ok && v != "" {
		c.Model.Path = v
	}
	if v, ok := lookup(EnvProvider); ok && v != "" {
		c.Model.Provider = providers.ExecutionProvider(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok {
		c.Log.File = v
	}
	if v, ok := lookup(EnvSharedLibraryPath); ok && v != "" {
		c.Runtime.SharedLibraryPath = v
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// Detector returns the detector section.
func (c Config) Detector() detector.Config {
	return detector.Config{
		ModelPath: c.Model.Path,
		Provider:  c.Model.Provider,
		Decoder:   c.Decoder,
		NMS:       c.NMS,
		Runtime:   c.Runtime,
	}
}
