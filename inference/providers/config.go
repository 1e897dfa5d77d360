package providers

// RuntimeConfig configures the ONNX Runtime environment and the backends behind each
// provider identifier.
type RuntimeConfig struct {
	// SharedLibraryPath overrides the platform default returned by GetSharedLibPath.
	SharedLibraryPath string `json:"sharedLibraryPath" yaml:"sharedLibraryPath"`
	// Intra-op parallelism threads. 0 lets the runtime decide.
	IntraOpThreads int `json:"intraOpThreads" yaml:"intraOpThreads" validate:"gte=0"`
	// Inter-op parallelism threads. 0 lets the runtime decide.
	InterOpThreads int `json:"interOpThreads" yaml:"interOpThreads" validate:"gte=0"`
	// Backends overrides the native backend bound to a provider identifier.
	Backends map[ExecutionProvider]Backend `json:"backends" yaml:"backends" validate:"omitempty,dive,keys,oneof=cpu webgl wasm webgpu,endkeys,oneof=cpu cuda coreml openvino"`

	CUDA     CUDAOptions     `json:"cuda" yaml:"cuda"`
	CoreML   CoreMLOptions   `json:"coreml" yaml:"coreml"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// DefaultRuntimeConfig returns a configuration using the default backend bindings.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{Backends: DefaultBackends()}
}

// BackendFor returns the native backend serving provider p.
func (c RuntimeConfig) BackendFor(p ExecutionProvider) Backend {
	if b, ok := c.Backends[p]; ok && b != "" {
		return b
	}
	return DefaultBackends()[p]
}

// LibraryPath returns the configured shared library path or the platform default.
func (c RuntimeConfig) LibraryPath() string {
	if c.SharedLibraryPath != "" {
		return c.SharedLibraryPath
	}
	return GetSharedLibPath()
}
