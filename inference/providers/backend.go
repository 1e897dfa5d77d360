package providers

// Backend represents a native ONNX Runtime execution provider.
type Backend string

const (
	// CPUBackend is the default ONNX Runtime CPU execution provider.
	CPUBackend Backend = "cpu"
	// CUDABackend uses NVIDIA CUDA for inference.
	CUDABackend Backend = "cuda"
	// CoreMLBackend uses Apple CoreML for macOS/iOS acceleration.
	CoreMLBackend Backend = "coreml"
	// OpenVINOBackend uses Intel OpenVINO for inference optimization.
	OpenVINOBackend Backend = "openvino"
)

// DefaultBackends binds each provider identifier to the native backend serving it.
func DefaultBackends() map[ExecutionProvider]Backend {
	return map[ExecutionProvider]Backend{
		CPU:    CPUBackend,
		WebGL:  CoreMLBackend,
		WASM:   OpenVINOBackend,
		WebGPU: CUDABackend,
	}
}
