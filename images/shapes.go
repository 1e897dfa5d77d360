package images

import "github.com/chewxy/math32"

// Box is an axis-aligned bounding box in corner form, in source frame pixels.
type Box struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// BoxFromCenter converts center/size form to corner form.
func BoxFromCenter(cx, cy, w, h float32) Box {
	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// Width returns x2 - x1.
func (b Box) Width() float32 { return b.X2 - b.X1 }

// Height returns y2 - y1.
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

// Area returns width*height, or 0 for degenerate boxes.
func (b Box) Area() float32 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Degenerate reports whether the box has no positive extent on some axis.
func (b Box) Degenerate() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Clamp limits the box to [0, width] × [0, height].
func (b Box) Clamp(width, height float32) Box {
	return Box{
		X1: clamp32(b.X1, 0, width),
		Y1: clamp32(b.Y1, 0, height),
		X2: clamp32(b.X2, 0, width),
		Y2: clamp32(b.Y2, 0, height),
	}
}

// Unletterbox maps a tensor-space box to the source frame and clamps it to the frame.
func (b Box) Unletterbox(p LetterboxParams) Box {
	x1, y1 := p.ToOriginal(b.X1, b.Y1)
	x2, y2 := p.ToOriginal(b.X2, b.Y2)
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}.Clamp(float32(p.SourceWidth), float32(p.SourceHeight))
}

// IoU returns the Intersection over Union of two boxes, a value in [0, 1].
//
// The intersection is bounded by the larger of the two top-left corners and the smaller of
// the two bottom-right corners. When the intersection has zero or negative width or height
// the boxes do not overlap and IoU is 0. The union follows inclusion-exclusion:
//
//	Area(A ∪ B) = Area(A) + Area(B) - Area(A ∩ B)
//
// Arguments:
//   - a: The first box.
//   - b: The box to compare against.
//
// Returns:
//   - float32: The IoU score.
//
// @example
//
//	a := Box{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Box{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	IoU(a, b) // 25 / 175 = 0.142857
func IoU(a, b Box) float32 {
	interW := math32.Min(a.X2, b.X2) - math32.Max(a.X1, b.X1)
	interH := math32.Min(a.Y2, b.Y2) - math32.Max(a.Y1, b.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}

	inter := interW * interH
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp32(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
