// Package images - Frames, letterboxing and box geometry for the detection pipeline.
package images

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// ErrInvalidFrame is returned when a frame's dimensions or pixel buffer are unusable.
var ErrInvalidFrame = errors.New("images: invalid frame")

// Frame is a single captured image in row-major RGBA order, 4 bytes per pixel.
//
// The pipeline never writes to Pix.
type Frame struct {
	// The width of the frame in pixels.
	Width int `json:"width" yaml:"width"`
	// The height of the frame in pixels.
	Height int `json:"height" yaml:"height"`
	// The pixel buffer, len(Pix) >= Width*Height*4.
	Pix []uint8 `json:"-" yaml:"-"`
}

// Validate reports whether the frame can be letterboxed.
//
// Returns:
//   - error: ErrInvalidFrame wrapped with the reason, or nil.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrInvalidFrame, "dimensions %dx%d", f.Width, f.Height)
	}
	if need := f.Width * f.Height * 4; len(f.Pix) < need {
		return errors.Wrapf(ErrInvalidFrame, "pixel buffer has %d bytes, need %d", len(f.Pix), need)
	}
	return nil
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0 || len(f.Pix) == 0
}

// RGBA wraps the frame's buffer as an *image.RGBA without copying.
func (f Frame) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Gray returns the unweighted luminance (r+g+b)/3 of the pixel at (x, y).
func (f Frame) Gray(x, y int) float64 {
	i := (y*f.Width + x) * 4
	return (float64(f.Pix[i]) + float64(f.Pix[i+1]) + float64(f.Pix[i+2])) / 3
}

// FromImage copies any image.Image into a Frame.
//
// Arguments:
//   - img: The source image. Its bounds are translated to the origin.
//
// Returns:
//   - Frame: A frame owning a fresh RGBA buffer.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == b.Dx()*4 {
		pix := make([]uint8, len(rgba.Pix))
		copy(pix, rgba.Pix)
		return Frame{Width: b.Dx(), Height: b.Dy(), Pix: pix}
	}

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return Frame{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// NewFilledFrame creates a frame where every pixel has the given color.
func NewFilledFrame(width, height int, r, g, b uint8) Frame {
	pix := make([]uint8, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = 255
	}
	return Frame{Width: width, Height: height, Pix: pix}
}
