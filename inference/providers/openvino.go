package providers

import "strconv"

// OpenVINOOptions contains arguments for the OpenVINO backend.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type (CPU, GPU, NPU) at runtime.
	DeviceType string `json:"deviceType" yaml:"deviceType"`
	// FP32, FP16 or ACCURACY.
	Precision string `json:"precision" yaml:"precision" validate:"omitempty,oneof=FP32 FP16 ACCURACY"`
	// Overrides the default number of inference threads.
	NumOfThreads int `json:"numOfThreads" yaml:"numOfThreads" validate:"gte=0"`
	// Overrides the default number of streams.
	NumStreams int `json:"numStreams" yaml:"numStreams" validate:"gte=0"`
	// Directory for compiled blob caching.
	CacheDir string `json:"cacheDir" yaml:"cacheDir"`
}

// ProviderOptions returns the options in ONNX Runtime's key/value form, omitting unset values.
func (o OpenVINOOptions) ProviderOptions() map[string]string {
	m := map[string]string{}
	if o.DeviceType != "" {
		m["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		m["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		m["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	if o.NumStreams > 0 {
		m["num_streams"] = strconv.Itoa(o.NumStreams)
	}
	if o.CacheDir != "" {
		m["cache_dir"] = o.CacheDir
	}
	return m
}
