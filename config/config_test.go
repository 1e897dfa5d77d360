package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/cam-detector/inference/providers"
	"github.com/nvr-ai/cam-detector/models/yolox"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camdet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
model:
  path: models/face_doc.onnx
  provider: webgpu
decoder:
  scoreThreshold: 0.7
nms:
  iouThreshold: 0.45
runtime:
  intraOpThreads: 4
  backends:
    webgpu: cpu
capture:
  auto: true
  burst:
    waitInterval: 250ms
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "models/face_doc.onnx", cfg.Model.Path)
	assert.Equal(t, providers.WebGPU, cfg.Model.Provider)
	assert.Equal(t, float32(0.7), cfg.Decoder.ScoreThreshold)
	assert.Equal(t, float32(yolox.DefaultObjectnessThreshold), cfg.Decoder.ObjectnessThreshold, "unset keys keep defaults")
	assert.Equal(t, float32(0.45), cfg.NMS.IoUThreshold)
	assert.Equal(t, 4, cfg.Runtime.IntraOpThreads)
	assert.Equal(t, providers.CPUBackend, cfg.Runtime.BackendFor(providers.WebGPU))
	assert.Equal(t, providers.CoreMLBackend, cfg.Runtime.BackendFor(providers.WebGL))
	assert.True(t, cfg.Capture.Auto)
	assert.Equal(t, 250*time.Millisecond, cfg.Capture.Burst.WaitInterval)
	assert.Equal(t, 3, cfg.Capture.Burst.StableFrames)
	assert.Equal(t, "debug", cfg.Log.Level)

	d := cfg.Detector()
	assert.Equal(t, cfg.Model.Path, d.ModelPath)
	assert.Equal(t, cfg.Model.Provider, d.Provider)
	assert.Equal(t, cfg.Decoder, d.Decoder)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "model:\n  path: from-file.onnx\n")
	t.Setenv(EnvModelPath, "from-env.onnx")
	t.Setenv(EnvProvider, "wasm")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogFile, "/tmp/camdet.log")
	t.Setenv(EnvSharedLibraryPath, "/opt/ort/libonnxruntime.so")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.onnx", cfg.Model.Path)
	assert.Equal(t, providers.WASM, cfg.Model.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/camdet.log", cfg.Log.File)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.Runtime.LibraryPath())
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvModelPath, "")

	tests := []struct {
		name string
		path string
	}{
		{name: "no model path", path: ""},
		{name: "missing file", path: filepath.Join(t.TempDir(), "absent.yaml")},
		{name: "malformed yaml", path: writeConfig(t, "model: [unterminated")},
		{name: "unknown provider", path: writeConfig(t, "model:\n  path: m.onnx\n  provider: tpu\n")},
		{name: "threshold out of range", path: writeConfig(t, "model:\n  path: m.onnx\ndecoder:\n  objectnessThreshold: 1.5\n")},
		{name: "bad backend", path: writeConfig(t, "model:\n  path: m.onnx\nruntime:\n  backends:\n    webgl: metal\n")},
		{name: "bad log level", path: writeConfig(t, "model:\n  path: m.onnx\nlog:\n  level: loud\n")},
		{name: "empty burst", path: writeConfig(t, "model:\n  path: m.onnx\ncapture:\n  burst:\n    stableFrames: 0\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv_IgnoresEmptyValues(t *testing.T) {
	cfg := Default()
	cfg.Model.Path = "keep.onnx"
	env := map[string]string{EnvModelPath: "", EnvProvider: ""}

	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "keep.onnx", cfg.Model.Path)
	assert.Equal(t, providers.CPU, cfg.Model.Provider)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte(EnvLogLevel+"=trace\n"), 0o600))

	t.Setenv(EnvLogLevel, "")
	require.NoError(t, os.Unsetenv(EnvLogLevel))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), file))
	assert.Equal(t, "trace", os.Getenv(EnvLogLevel))
}
