package capture

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/images/kernels"
)

const (
	// SharpnessWindowStart and SharpnessWindowEnd bound the scored centre region as a
	// fraction of each dimension.
	SharpnessWindowStart = 0.25
	SharpnessWindowEnd   = 0.75
)

// ErrNoFrames is returned when a selection is asked to choose from nothing.
var ErrNoFrames = errors.New("capture: no frames")

// Sharpness scores the focus of a frame as the mean Sobel gradient magnitude over the
// centre window.
//
// The sum runs over the window interior and is divided by the full window area. Rows are
// scored in parallel and merged in row order.
//
// Arguments:
//   - frame: The frame to score.
//
// Returns:
//   - float64: The sharpness; higher is crisper. 0 for frames too small to score.
func Sharpness(frame images.Frame) float64 {
	if frame.Validate() != nil {
		return 0
	}

	x0, x1 := window(frame.Width, SharpnessWindowStart, SharpnessWindowEnd)
	y0, y1 := window(frame.Height, SharpnessWindowStart, SharpnessWindowEnd)
	area := (x1 - x0) * (y1 - y0)
	rows := (y1 - 1) - (y0 + 1)
	if area <= 0 || rows <= 0 || x1-x0 <= 2 {
		return 0
	}

	parts := images.Partition(rows, 0)
	sums := make([]float64, len(parts))
	images.Parallel(parts, func(part, start, end int) {
		var s float64
		for y := y0 + 1 + start; y < y0+1+end; y++ {
			for x := x0 + 1; x < x1-1; x++ {
				s += kernels.SobelMagnitude(frame, x, y)
			}
		}
		sums[part] = s
	})

	var total float64
	for _, s := range sums {
		total += s
	}
	return total / float64(area)
}

// SelectBestFrame returns the sharpest frame. Ties go to the earliest frame.
//
// Returns:
//   - images.Frame: The selected frame.
//   - int: Its index in frames.
//   - error: ErrNoFrames when frames is empty.
func SelectBestFrame(frames []images.Frame) (images.Frame, int, error) {
	if len(frames) == 0 {
		return images.Frame{}, -1, ErrNoFrames
	}

	best, bestScore := 0, Sharpness(frames[0])
	for i := 1; i < len(frames); i++ {
		if s := Sharpness(frames[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	return frames[best], best, nil
}
