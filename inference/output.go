package inference

import (
	"context"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// AnchorStride is the number of values per anchor: cx, cy, w, h, objectness, p_face, p_doc.
const AnchorStride = 7

// RawOutput is one named model output.
type RawOutput struct {
	Name string
	Data []float32
	Dims tensor.Shape
}

// Outputs holds model outputs in the order the model declares them.
type Outputs []RawOutput

// First returns the first declared output.
func (o Outputs) First() (RawOutput, error) {
	if len(o) == 0 {
		return RawOutput{}, ErrNoOutputs
	}
	return o[0], nil
}

// ByName returns the output with the given name.
func (o Outputs) ByName(name string) (RawOutput, bool) {
	for _, out := range o {
		if out.Name == name {
			return out, true
		}
	}
	return RawOutput{}, false
}

// ValidateAnchors checks that the output is laid out as [1, anchors, AnchorStride] and
// that the buffer length agrees with the dims.
//
// Returns:
//   - error: ErrUnexpectedOutputShape wrapped with the offending dims, or nil.
func (r RawOutput) ValidateAnchors(anchors int) error {
	want := tensor.Shape{1, anchors, AnchorStride}
	if !r.Dims.Eq(want) {
		return errors.Wrapf(ErrUnexpectedOutputShape, "output %q has dims %v, want %v", r.Name, r.Dims, want)
	}
	if len(r.Data) != want.TotalSize() {
		return errors.Wrapf(ErrUnexpectedOutputShape, "output %q holds %d values, want %d",
			r.Name, len(r.Data), want.TotalSize())
	}
	return nil
}

// Inferer runs a model over one encoded input.
//
// Implementations return outputs in model declaration order. The input is read-only.
type Inferer interface {
	Infer(ctx context.Context, input *Tensor) (Outputs, error)
}

// InfererFunc adapts a function to the Inferer interface.
type InfererFunc func(ctx context.Context, input *Tensor) (Outputs, error)

// Infer calls f.
func (f InfererFunc) Infer(ctx context.Context, input *Tensor) (Outputs, error) {
	return f(ctx, input)
}
