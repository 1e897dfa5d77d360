package inference

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned when a canvas cannot be encoded.
	ErrInvalidInput = errors.New("inference: invalid input")

	// ErrModelNotLoaded is returned when inference is requested without a ready session.
	ErrModelNotLoaded = errors.New("inference: model not loaded")

	// ErrUnexpectedOutputShape is returned when the model output does not have the
	// [1, anchors, 7] layout.
	ErrUnexpectedOutputShape = errors.New("inference: unexpected output shape")

	// ErrNoOutputs is returned when a session produced no outputs at all.
	ErrNoOutputs = errors.New("inference: session returned no outputs")
)
