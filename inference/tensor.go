// Package inference - Model input encoding and the inference boundary.
package inference

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Tensor is a dense float32 model input.
type Tensor struct {
	// Data holds the values in row-major order of Shape.
	Data []float32
	// Shape is [1, 3, side, side] for encoded frames.
	Shape tensor.Shape
}

// Encoder converts letterboxed canvases into planar BGR tensors.
//
// Buffers are pooled per side length; a tensor handed back through Release may be reused by
// the next Encode call.
type Encoder struct {
	side int
	pool sync.Pool
}

// NewEncoder creates an encoder for side×side canvases.
func NewEncoder(side int) *Encoder {
	e := &Encoder{side: side}
	e.pool.New = func() any {
		buf := make([]float32, 3*side*side)
		return &buf
	}
	return e
}

// Encode lays out img as three planes B, G, R, each side×side row-major. Values stay in
// the raw 0..255 range; the model expects unnormalized input.
//
// Arguments:
//   - img: A side×side canvas, normally produced by images.Letterbox.
//
// Returns:
//   - *Tensor: The encoded input with shape [1, 3, side, side].
//   - error: ErrInvalidInput when img is not side×side.
func (e *Encoder) Encode(img *image.RGBA) (*Tensor, error) {
	b := img.Bounds()
	if b.Dx() != e.side || b.Dy() != e.side {
		return nil, errors.Wrapf(ErrInvalidInput, "canvas is %dx%d, want %dx%d", b.Dx(), b.Dy(), e.side, e.side)
	}

	data := *(e.pool.Get().(*[]float32))
	encodeBGRPlanar(img, e.side, data)

	return &Tensor{Data: data, Shape: tensor.Shape{1, 3, e.side, e.side}}, nil
}

// Release returns a tensor's buffer to the pool. The tensor must not be used afterwards.
func (e *Encoder) Release(t *Tensor) {
	if t == nil || len(t.Data) != 3*e.side*e.side {
		return
	}
	buf := t.Data
	t.Data = nil
	e.pool.Put(&buf)
}

// EncodeBGRPlanar encodes a square canvas without pooling.
func EncodeBGRPlanar(img *image.RGBA) (*Tensor, error) {
	b := img.Bounds()
	if b.Dx() != b.Dy() || b.Dx() == 0 {
		return nil, errors.Wrapf(ErrInvalidInput, "canvas is %dx%d, want a square", b.Dx(), b.Dy())
	}

	side := b.Dx()
	data := make([]float32, 3*side*side)
	encodeBGRPlanar(img, side, data)
	return &Tensor{Data: data, Shape: tensor.Shape{1, 3, side, side}}, nil
}

func encodeBGRPlanar(img *image.RGBA, side int, data []float32) {
	plane := side * side
	blue := data[0:plane]
	green := data[plane : 2*plane]
	red := data[2*plane : 3*plane]

	origin := img.Bounds().Min
	for y := 0; y < side; y++ {
		row := img.Pix[img.PixOffset(origin.X, origin.Y+y):]
		for x := 0; x < side; x++ {
			i := y*side + x
			px := row[x*4 : x*4+3]
			red[i] = float32(px[0])
			green[i] = float32(px[1])
			blue[i] = float32(px[2])
		}
	}
}
