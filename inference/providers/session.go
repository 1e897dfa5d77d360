package providers

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/cam-detector/inference"
	"github.com/nvr-ai/cam-detector/logging"
)

// Session is a loaded model able to run inference.
type Session interface {
	inference.Inferer
	// Release frees the native resources. The session is unusable afterwards.
	Release() error
}

// SessionRequest describes one session load attempt.
type SessionRequest struct {
	ModelPath string
	Provider  ExecutionProvider
	Backend   Backend
	Options   SessionOptions
}

// SessionFactory creates sessions. Implementations must be safe for sequential reuse.
type SessionFactory interface {
	NewSession(ctx context.Context, req SessionRequest) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context, req SessionRequest) (Session, error)

// NewSession calls f.
func (f SessionFactoryFunc) NewSession(ctx context.Context, req SessionRequest) (Session, error) {
	return f(ctx, req)
}

// ORTFactory creates ONNX Runtime sessions.
type ORTFactory struct {
	runtime RuntimeConfig
	log     logrus.FieldLogger

	initOnce sync.Once
	initErr  error
}

// NewORTFactory creates a factory. The runtime environment is initialized lazily on the
// first session.
func NewORTFactory(rt RuntimeConfig, log logrus.FieldLogger) *ORTFactory {
	return &ORTFactory{runtime: rt, log: logging.OrDiscard(log)}
}

// initialize loads the shared library and prepares the runtime environment once.
func (f *ORTFactory) initialize() error {
	f.initOnce.Do(func() {
		libPath := f.runtime.LibraryPath()
		if _, err := os.Stat(libPath); err != nil {
			f.initErr = fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
			return
		}

		ort.SetSharedLibraryPath(libPath)
		if !ort.IsInitialized() {
			if err := ort.InitializeEnvironment(); err != nil {
				f.initErr = fmt.Errorf("error initializing ORT environment: %w", err)
				return
			}
		}
		f.log.WithField("library", libPath).Info("onnx runtime initialized")
	})
	return f.initErr
}

// NewSession loads a model on the requested backend.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Model introspection: reads input and output names in declaration order.
//  3. Session options: threading, graph optimization, memory planning, execution provider.
//  4. Session creation: binds the model with dynamically allocated outputs.
//
// Arguments:
//   - ctx: Checked before the (uninterruptible) native load begins.
//   - req: The model path, backend and options.
//
// Returns:
//   - Session: The loaded session.
//   - error: An error if any step fails.
func (f *ORTFactory) NewSession(ctx context.Context, req SessionRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.initialize(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(req.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model info from %s: %w", req.ModelPath, err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("model %s has %d inputs, want 1", req.ModelPath, len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no outputs", req.ModelPath)
	}

	outputNames := make([]string, len(outputs))
	for i, o := range outputs {
		outputNames[i] = o.Name
	}

	options, err := newNativeOptions(req.Options, req.Backend, f.runtime)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		req.ModelPath,
		[]string{inputs[0].Name},
		outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	f.log.WithFields(logrus.Fields{
		"provider": req.Provider,
		"backend":  req.Backend,
		"input":    inputs[0].Name,
		"outputs":  outputNames,
	}).Debug("session created")

	return &ortSession{session: session, outputNames: outputNames}, nil
}

// Close tears down the runtime environment. Sessions must be released first.
func (f *ORTFactory) Close() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

type ortSession struct {
	session     *ort.DynamicAdvancedSession
	outputNames []string
}

// Infer runs the model and copies every output out of native memory.
func (s *ortSession) Infer(ctx context.Context, input *inference.Tensor) (inference.Outputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, inference.ErrModelNotLoaded
	}

	in, err := ort.NewTensor(toORTShape(input.Shape), input.Data)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	defer in.Destroy()

	// nil outputs are allocated by the runtime.
	values := make([]ort.Value, len(s.outputNames))
	if err := s.session.Run([]ort.Value{in}, values); err != nil {
		return nil, fmt.Errorf("error running ORT session: %w", err)
	}
	defer func() {
		for _, v := range values {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	outs := make(inference.Outputs, 0, len(values))
	for i, v := range values {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("%w: output %q is %T, want float32 tensor",
				inference.ErrUnexpectedOutputShape, s.outputNames[i], v)
		}
		outs = append(outs, inference.RawOutput{
			Name: s.outputNames[i],
			Data: append([]float32(nil), t.GetData()...),
			Dims: fromORTShape(t.GetShape()),
		})
	}
	return outs, nil
}

func (s *ortSession) Release() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	if err != nil {
		return fmt.Errorf("error destroying ORT session: %w", err)
	}
	return nil
}

func toORTShape(s tensor.Shape) ort.Shape {
	dims := make([]int64, len(s))
	for i, d := range s {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}

func fromORTShape(s ort.Shape) tensor.Shape {
	dims := make(tensor.Shape, len(s))
	for i, d := range s {
		dims[i] = int(d)
	}
	return dims
}
