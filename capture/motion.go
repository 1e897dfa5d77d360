// Package capture - Motion gating, sharpness scoring and best-frame burst capture.
package capture

import (
	"math"
	"sync"

	"github.com/nvr-ai/cam-detector/images"
)

const (
	// MotionWindowStart and MotionWindowEnd bound the sampled centre region as a fraction
	// of each dimension.
	MotionWindowStart = 0.3
	MotionWindowEnd   = 0.7
	// MotionStride samples every n-th pixel along both axes.
	MotionStride = 4
)

// MotionTracker measures frame-to-frame change against the previous frame it saw.
type MotionTracker struct {
	mu   sync.Mutex
	prev images.Frame
}

// NewMotionTracker creates a tracker with no reference frame.
func NewMotionTracker() *MotionTracker {
	return &MotionTracker{}
}

// Level returns the mean absolute gray difference between frame and the previous frame,
// sampled over the centre window, then makes frame the new reference.
//
// The first frame, or a frame whose size differs from the reference, scores 0.
//
// Arguments:
//   - frame: The current frame. It is retained until the next call.
//
// Returns:
//   - float64: The motion level in gray levels, 0..255.
func (m *MotionTracker) Level(frame images.Frame) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.prev
	m.prev = frame
	if prev.Empty() || prev.Width != frame.Width || prev.Height != frame.Height {
		return 0
	}

	x0, x1 := window(frame.Width, MotionWindowStart, MotionWindowEnd)
	y0, y1 := window(frame.Height, MotionWindowStart, MotionWindowEnd)

	var total float64
	n := 0
	for y := y0; y < y1; y += MotionStride {
		for x := x0; x < x1; x += MotionStride {
			total += math.Abs(frame.Gray(x, y) - prev.Gray(x, y))
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Reset drops the reference frame.
func (m *MotionTracker) Reset() {
	m.mu.Lock()
	m.prev = images.Frame{}
	m.mu.Unlock()
}

// window returns [floor(size*start), floor(size*end)).
func window(size int, start, end float64) (int, int) {
	return int(math.Floor(float64(size) * start)), int(math.Floor(float64(size) * end))
}
