package providers

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/cam-detector/inference"
)

// fakeSession records whether it was released.
type fakeSession struct {
	req        SessionRequest
	released   bool
	releaseErr error
}

func (s *fakeSession) Infer(context.Context, *inference.Tensor) (inference.Outputs, error) {
	return inference.Outputs{{Name: string(s.req.Provider)}}, nil
}

func (s *fakeSession) Release() error {
	s.released = true
	return s.releaseErr
}

// fakeFactory fails for the configured providers and tracks live sessions.
type fakeFactory struct {
	mu         sync.Mutex
	failing    map[ExecutionProvider]bool
	releaseErr error
	requests   []SessionRequest
	sessions   []*fakeSession
}

func newFakeFactory(failing ...ExecutionProvider) *fakeFactory {
	f := &fakeFactory{failing: map[ExecutionProvider]bool{}}
	for _, p := range failing {
		f.failing[p] = true
	}
	return f
}

func (f *fakeFactory) NewSession(_ context.Context, req SessionRequest) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failing[req.Provider] {
		return nil, errors.Errorf("%s unavailable", req.Provider)
	}
	s := &fakeSession{req: req, releaseErr: f.releaseErr}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) attempts() []ExecutionProvider {
	out := make([]ExecutionProvider, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Provider
	}
	return out
}

func (f *fakeFactory) live() int {
	n := 0
	for _, s := range f.sessions {
		if !s.released {
			n++
		}
	}
	return n
}

func TestChain(t *testing.T) {
	assert.Equal(t, []ExecutionProvider{CPU}, Chain(CPU))
	assert.Equal(t, []ExecutionProvider{WebGL, CPU}, Chain(WebGL))
	assert.Equal(t, []ExecutionProvider{WASM, CPU}, Chain(WASM))
	assert.Equal(t, []ExecutionProvider{WebGPU, WebGL, CPU}, Chain(WebGPU))
	assert.Nil(t, Chain("tpu"))

	c := Chain(WebGPU)
	c[0] = CPU
	assert.Equal(t, WebGPU, Chain(WebGPU)[0], "callers cannot mutate the chain")
}

func TestParseExecutionProvider(t *testing.T) {
	p, err := ParseExecutionProvider(" WebGPU ")
	require.NoError(t, err)
	assert.Equal(t, WebGPU, p)

	_, err = ParseExecutionProvider("tpu")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestManager_StartsUnloaded(t *testing.T) {
	m := NewManager(newFakeFactory(), "model.onnx", DefaultRuntimeConfig(), nil)

	assert.Equal(t, StateUnloaded, m.Status().State)
	_, err := m.Session()
	assert.ErrorIs(t, err, inference.ErrModelNotLoaded)
}

func TestManager_LoadModel(t *testing.T) {
	f := newFakeFactory()
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	require.NoError(t, m.LoadModel(context.Background(), WebGL))

	st := m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, WebGL, st.Provider)
	assert.Equal(t, WebGL, st.Active)
	assert.Equal(t, CoreMLBackend, st.Backend)

	s, err := m.Session()
	require.NoError(t, err)
	assert.NotNil(t, s)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "model.onnx", f.requests[0].ModelPath)
	assert.Equal(t, GraphOptimizationBasic, f.requests[0].Options.GraphOptimization)
}

func TestManager_ChainFallsThroughToActivatedBackend(t *testing.T) {
	f := newFakeFactory(WebGPU)
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	require.NoError(t, m.LoadModel(context.Background(), WebGPU))

	st := m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, WebGPU, st.Provider, "the requested provider is reported")
	assert.Equal(t, WebGL, st.Active, "the activated chain entry is surfaced")
	assert.Equal(t, []ExecutionProvider{WebGPU, WebGL}, f.attempts())
}

func TestManager_LoadModelFailure(t *testing.T) {
	f := newFakeFactory(WASM, CPU)
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	err := m.LoadModel(context.Background(), WASM)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderLoad)

	var loadErr *ProviderLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, WASM, loadErr.Provider)
	assert.Len(t, loadErr.Attempts, 2)

	st := m.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, WASM, st.Provider)
	assert.ErrorIs(t, st.Err, ErrProviderLoad)
}

func TestManager_SwitchFallsBackToCPU(t *testing.T) {
	f := newFakeFactory(WebGPU, WebGL)
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)
	ctx := context.Background()

	require.NoError(t, m.LoadModel(ctx, CPU))

	// WebGPU's own chain reaches cpu, so the switch lands on cpu within the chain.
	require.NoError(t, m.SwitchProvider(ctx, WebGPU))
	st := m.Status()
	assert.Equal(t, StateReady, st.State)
	assert.Equal(t, CPU, st.Active)
	assert.Equal(t, 1, f.live(), "at most one live session")
}

func TestManager_SwitchFallbackWhenChainExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)
	require.NoError(t, m.LoadModel(ctx, CPU))

	// cpu fails only inside the webgpu chain, then recovers for the explicit fallback.
	calls := 0
	m.factory = SessionFactoryFunc(func(ctx context.Context, req SessionRequest) (Session, error) {
		calls++
		if calls <= 3 {
			return nil, errors.Errorf("%s unavailable", req.Provider)
		}
		return f.NewSession(ctx, req)
	})

	require.NoError(t, m.SwitchProvider(ctx, WebGPU))

	st := m.Status()
	assert.Equal(t, StateReady, st.State, "a failed switch ends Ready on cpu, not Failed")
	assert.Equal(t, CPU, st.Provider)
	assert.Equal(t, WebGPU, st.FallbackFrom)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, f.live())
}

func TestManager_SwitchFatalWhenCPUFails(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newFakeFactory(WASM, CPU), "model.onnx", DefaultRuntimeConfig(), nil)

	err := m.SwitchProvider(ctx, WASM)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUsableProvider)
	assert.ErrorIs(t, err, ErrProviderLoad)

	st := m.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, CPU, st.Provider)
}

func TestManager_SwitchToCPUFailureIsNotRetried(t *testing.T) {
	f := newFakeFactory(CPU)
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	err := m.SwitchProvider(context.Background(), CPU)
	assert.ErrorIs(t, err, ErrProviderLoad)
	assert.Len(t, f.requests, 1)
}

func TestManager_SwitchToActiveProviderIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	require.NoError(t, m.LoadModel(ctx, WASM))
	require.NoError(t, m.SwitchProvider(ctx, WASM))

	assert.Len(t, f.requests, 1, "no reload for the active provider")
	assert.Equal(t, 1, f.live())
}

func TestManager_ReleaseFailureDoesNotBlockLoad(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	deviceLost := errors.New("device lost")
	f.releaseErr = deviceLost
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	require.NoError(t, m.LoadModel(ctx, CPU))
	require.NoError(t, m.SwitchProvider(ctx, WebGL))

	assert.Equal(t, StateReady, m.Status().State)
	assert.True(t, f.sessions[0].released, "the old session was released before loading")

	err := m.Release()
	assert.ErrorIs(t, err, ErrSessionRelease)
	assert.ErrorIs(t, err, deviceLost, "the native cause stays reachable")

	var relErr *ReleaseError
	require.ErrorAs(t, err, &relErr)
	assert.Equal(t, WebGL, relErr.Provider)
	assert.Equal(t, StateUnloaded, m.Status().State)
}

func TestManager_Reload(t *testing.T) {
	ctx := context.Background()
	f := newFakeFactory()
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	assert.ErrorIs(t, m.Reload(ctx), inference.ErrModelNotLoaded)

	require.NoError(t, m.LoadModel(ctx, WASM))
	require.NoError(t, m.Reload(ctx))

	assert.Len(t, f.requests, 2)
	assert.Equal(t, WASM, m.Status().Provider)
	assert.Equal(t, 1, f.live())
}

func TestManager_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFakeFactory()
	m := NewManager(f, "model.onnx", DefaultRuntimeConfig(), nil)

	err := m.LoadModel(ctx, WebGPU)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.requests)
	assert.Equal(t, StateFailed, m.Status().State)
}

func TestManager_RejectsUnknownProvider(t *testing.T) {
	m := NewManager(newFakeFactory(), "model.onnx", DefaultRuntimeConfig(), nil)
	assert.ErrorIs(t, m.LoadModel(context.Background(), "tpu"), ErrUnknownProvider)
	assert.ErrorIs(t, m.SwitchProvider(context.Background(), "tpu"), ErrUnknownProvider)
}

func TestSessionOptionsFor(t *testing.T) {
	rt := DefaultRuntimeConfig()
	rt.IntraOpThreads = 4

	cpu := SessionOptionsFor(CPU, rt)
	assert.Equal(t, GraphOptimizationDisabled, cpu.GraphOptimization)
	assert.True(t, cpu.EnableCPUMemArena)
	assert.False(t, cpu.EnableMemPattern)
	assert.Equal(t, 4, cpu.IntraOpThreads)

	gpu := SessionOptionsFor(WebGPU, rt)
	assert.Equal(t, GraphOptimizationBasic, gpu.GraphOptimization)
	assert.False(t, gpu.EnableCPUMemArena)
	assert.True(t, gpu.EnableMemPattern)
}

func TestRuntimeConfig_BackendFor(t *testing.T) {
	rt := RuntimeConfig{Backends: map[ExecutionProvider]Backend{WebGL: OpenVINOBackend}}
	assert.Equal(t, OpenVINOBackend, rt.BackendFor(WebGL), "overrides win")
	assert.Equal(t, CUDABackend, rt.BackendFor(WebGPU), "missing entries use the defaults")
	assert.Equal(t, CPUBackend, rt.BackendFor(CPU))

	rt.SharedLibraryPath = "/opt/ort/libonnxruntime.so"
	assert.Equal(t, "/opt/ort/libonnxruntime.so", rt.LibraryPath())
	assert.NotEmpty(t, RuntimeConfig{}.LibraryPath())
}

func TestBackendOptions(t *testing.T) {
	cuda := CUDAOptions{DeviceID: 1, GPUMemLimit: 1 << 30, CudnnConvAlgoSearch: "HEURISTIC"}.ProviderOptions()
	assert.Equal(t, "1", cuda["device_id"])
	assert.Equal(t, "1073741824", cuda["gpu_mem_limit"])
	assert.Equal(t, "HEURISTIC", cuda["cudnn_conv_algo_search"])
	assert.NotContains(t, cuda, "arena_extend_strategy")

	ov := OpenVINOOptions{DeviceType: "GPU", Precision: "FP16"}.ProviderOptions()
	assert.Equal(t, map[string]string{"device_type": "GPU", "precision": "FP16"}, ov)

	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x011), CoreMLOptions{CPUOnly: true, ModelFormat: "MLProgram"}.Flags())
}
