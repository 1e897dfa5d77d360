package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// GraphOptimization names an ONNX Runtime graph optimization level.
type GraphOptimization string

const (
	GraphOptimizationDisabled GraphOptimization = "disabled"
	GraphOptimizationBasic    GraphOptimization = "basic"
	GraphOptimizationExtended GraphOptimization = "extended"
	GraphOptimizationAll      GraphOptimization = "all"
)

// SessionOptions are the per-session settings derived from the requested provider.
type SessionOptions struct {
	GraphOptimization GraphOptimization
	EnableCPUMemArena bool
	EnableMemPattern  bool
	IntraOpThreads    int
	InterOpThreads    int
}

// SessionOptionsFor derives the session settings for a provider.
//
// The cpu provider runs the graph unoptimized with the CPU memory arena enabled and memory
// pattern planning disabled; accelerated providers use basic optimization, no arena, and
// memory pattern planning.
//
// Arguments:
//   - p: The provider attempt being loaded.
//   - rt: Runtime configuration supplying thread counts.
//
// Returns:
//   - SessionOptions: The settings for the session.
func SessionOptionsFor(p ExecutionProvider, rt RuntimeConfig) SessionOptions {
	opts := SessionOptions{
		IntraOpThreads: rt.IntraOpThreads,
		InterOpThreads: rt.InterOpThreads,
	}
	if p == CPU {
		opts.GraphOptimization = GraphOptimizationDisabled
		opts.EnableCPUMemArena = true
		opts.EnableMemPattern = false
	} else {
		opts.GraphOptimization = GraphOptimizationBasic
		opts.EnableCPUMemArena = false
		opts.EnableMemPattern = true
	}
	return opts
}

func (g GraphOptimization) level() (ort.GraphOptimizationLevel, error) {
	switch g {
	case GraphOptimizationDisabled:
		return ort.GraphOptimizationLevelDisableAll, nil
	case GraphOptimizationBasic:
		return ort.GraphOptimizationLevelEnableBasic, nil
	case GraphOptimizationExtended:
		return ort.GraphOptimizationLevelEnableExtended, nil
	case GraphOptimizationAll, "":
		return ort.GraphOptimizationLevelEnableAll, nil
	default:
		return 0, fmt.Errorf("unknown graph optimization level %q", g)
	}
}

// newNativeOptions builds native session options for one backend. The caller must Destroy
// the result.
func newNativeOptions(opts SessionOptions, backend Backend, rt RuntimeConfig) (*ort.SessionOptions, error) {
	level, err := opts.GraphOptimization.level()
	if err != nil {
		return nil, err
	}

	native, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	fail := func(what string, err error) (*ort.SessionOptions, error) {
		native.Destroy()
		return nil, fmt.Errorf("error %s: %w", what, err)
	}

	if err := native.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
		return fail("setting intra-op threads", err)
	}
	if err := native.SetInterOpNumThreads(opts.InterOpThreads); err != nil {
		return fail("setting inter-op threads", err)
	}
	if err := native.SetGraphOptimizationLevel(level); err != nil {
		return fail("setting graph optimization level", err)
	}
	if err := native.SetCpuMemArena(opts.EnableCPUMemArena); err != nil {
		return fail("setting CPU memory arena", err)
	}
	if err := native.SetMemPattern(opts.EnableMemPattern); err != nil {
		return fail("setting memory pattern", err)
	}

	switch backend {
	case CPUBackend:
	case CUDABackend:
		cuda, err := rt.CUDA.ToNativeProviderOptions()
		if err != nil {
			return fail("converting CUDA options", err)
		}
		defer cuda.Destroy()
		if err := native.AppendExecutionProviderCUDA(cuda); err != nil {
			return fail("enabling CUDA", err)
		}
	case CoreMLBackend:
		if err := native.AppendExecutionProviderCoreML(rt.CoreML.Flags()); err != nil {
			return fail("enabling CoreML", err)
		}
	case OpenVINOBackend:
		if err := native.AppendExecutionProviderOpenVINO(rt.OpenVINO.ProviderOptions()); err != nil {
			return fail("enabling OpenVINO", err)
		}
	default:
		return fail("selecting backend", fmt.Errorf("unsupported backend %q", backend))
	}

	return native, nil
}
