package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
)

// DefaultLetterboxSide is the square model input side length.
const DefaultLetterboxSide = 640

// LetterboxFill is the padding color of the letterbox canvas.
var LetterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// LetterboxParams describes the mapping between source frame and model input coordinates.
//
// A tensor-space point t maps back to the source frame as (t - offset) / scale.
type LetterboxParams struct {
	// Uniform scale factor applied to the source frame.
	Scale float32 `json:"scale"`
	// Horizontal padding on the left of the resized image, (side - resizedWidth) / 2.
	OffsetX float32 `json:"offsetX"`
	// Vertical padding on top of the resized image, (side - resizedHeight) / 2.
	OffsetY float32 `json:"offsetY"`
	// Side length of the square canvas.
	Side int `json:"side"`
	// Source frame dimensions.
	SourceWidth  int `json:"sourceWidth"`
	SourceHeight int `json:"sourceHeight"`
	// Dimensions of the resized frame inside the canvas.
	ResizedWidth  int `json:"resizedWidth"`
	ResizedHeight int `json:"resizedHeight"`
}

// ComputeLetterbox derives the letterbox parameters for a source of the given size.
//
// Arguments:
//   - srcW, srcH: The source frame dimensions, both > 0.
//   - side: The square canvas side length.
//
// Returns:
//   - LetterboxParams: scale = min(side/srcW, side/srcH), rounded resized dimensions and
//     centering offsets.
func ComputeLetterbox(srcW, srcH, side int) LetterboxParams {
	s := float32(side)
	scale := math32.Min(s/float32(srcW), s/float32(srcH))
	newW := int(math32.Floor(float32(srcW)*scale + 0.5))
	newH := int(math32.Floor(float32(srcH)*scale + 0.5))

	return LetterboxParams{
		Scale:         scale,
		OffsetX:       (s - float32(newW)) / 2,
		OffsetY:       (s - float32(newH)) / 2,
		Side:          side,
		SourceWidth:   srcW,
		SourceHeight:  srcH,
		ResizedWidth:  newW,
		ResizedHeight: newH,
	}
}

// Letterbox scales a frame to fit a side×side canvas preserving aspect ratio, centers it
// and pads the remainder with LetterboxFill.
//
// The frame must have passed Validate. The returned params belong to this frame only and
// must travel with it to the decoder.
//
// Arguments:
//   - frame: The source frame.
//   - side: The canvas side length.
//
// Returns:
//   - *image.RGBA: The side×side letterboxed canvas.
//   - LetterboxParams: The mapping used to produce the canvas.
//
// @example
//
//	canvas, params := images.Letterbox(frame, images.DefaultLetterboxSide)
//	x, y := params.ToOriginal(320, 320)
func Letterbox(frame Frame, side int) (*image.RGBA, LetterboxParams) {
	params := ComputeLetterbox(frame.Width, frame.Height, side)

	canvas := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: LetterboxFill}, image.Point{}, draw.Src)

	w := max(params.ResizedWidth, 1)
	h := max(params.ResizedHeight, 1)

	var src image.Image = frame.RGBA()
	if w != frame.Width || h != frame.Height {
		src = resize.Resize(uint(w), uint(h), src, resize.Bilinear)
	}

	// Pixels land on the integer grid; the float offsets stay exact for coordinate inversion.
	x0 := int(math32.Floor(params.OffsetX))
	y0 := int(math32.Floor(params.OffsetY))
	draw.Draw(canvas, image.Rect(x0, y0, x0+w, y0+h), src, src.Bounds().Min, draw.Src)

	return canvas, params
}

// ToOriginal maps a tensor-space point back to source frame coordinates.
func (p LetterboxParams) ToOriginal(x, y float32) (float32, float32) {
	return (x - p.OffsetX) / p.Scale, (y - p.OffsetY) / p.Scale
}

// ToTensor maps a source frame point into tensor space.
func (p LetterboxParams) ToTensor(x, y float32) (float32, float32) {
	return x*p.Scale + p.OffsetX, y*p.Scale + p.OffsetY
}
