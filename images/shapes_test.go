package images

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases.
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		a        Box
		b        Box
		expected float32
	}{
		{"Identical boxes", Box{0, 0, 100, 100}, Box{0, 0, 100, 100}, 1.0},
		{"No overlap", Box{0, 0, 100, 100}, Box{200, 200, 300, 300}, 0.0},
		{"Touching edges", Box{0, 0, 100, 100}, Box{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=17500
		{"Quarter overlap", Box{0, 0, 100, 100}, Box{50, 50, 150, 150}, 0.142857},
		// intersection=100, union=19900
		{"Small overlap", Box{0, 0, 100, 100}, Box{90, 90, 190, 190}, 0.005025},
		{"One inside other", Box{0, 0, 100, 100}, Box{25, 25, 75, 75}, 0.25},
		{"Fractional corners", Box{0.5, 0.5, 10.5, 10.5}, Box{5.5, 5.5, 15.5, 15.5}, 0.142857},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-4, "IoU(%v, %v)", tt.a, tt.b)
			assert.InDelta(t, got, IoU(tt.b, tt.a), 1e-6, "IoU should be symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares integer-aligned boxes against image.Rectangle.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	cases := []struct {
		name string
		a, b image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IoU(boxOf(tc.a), boxOf(tc.b))
			assert.InDelta(t, rectangleIoU(tc.a, tc.b), got, 1e-4)
		})
	}
}

func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
	}{
		{"Zero area box", Box{0, 0, 0, 0}, Box{0, 0, 100, 100}},
		{"Both zero area", Box{0, 0, 0, 0}, Box{10, 10, 10, 10}},
		{"Inverted box", Box{100, 100, 0, 0}, Box{0, 0, 100, 100}},
		{"Negative coordinates", Box{-100, -100, 0, 0}, Box{-50, -50, 50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, float32(0), "IoU must not be negative")
			assert.LessOrEqual(t, got, float32(1), "IoU must not exceed 1")
		})
	}
}

func TestBox_Clamp(t *testing.T) {
	b := Box{X1: -10, Y1: -5, X2: 700, Y2: 300}.Clamp(640, 480)
	assert.Equal(t, Box{X1: 0, Y1: 0, X2: 640, Y2: 300}, b)
	assert.False(t, b.Degenerate())

	collapsed := Box{X1: 650, Y1: 10, X2: 700, Y2: 20}.Clamp(640, 480)
	assert.True(t, collapsed.Degenerate(), "a box fully outside the frame collapses to zero width")
}

func TestBoxFromCenter(t *testing.T) {
	b := BoxFromCenter(320, 240, 100, 50)
	assert.Equal(t, Box{X1: 270, Y1: 215, X2: 370, Y2: 265}, b)
	assert.Equal(t, float32(100), b.Width())
	assert.Equal(t, float32(50), b.Height())
	assert.Equal(t, float32(5000), b.Area())
}

func boxOf(r image.Rectangle) Box {
	return Box{X1: float32(r.Min.X), Y1: float32(r.Min.Y), X2: float32(r.Max.X), Y2: float32(r.Max.Y)}
}

func rectangleIoU(r1, r2 image.Rectangle) float32 {
	inter := r1.Intersect(r2)
	if inter.Empty() {
		return 0
	}
	ia := inter.Dx() * inter.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - ia
	return float32(ia) / float32(union)
}
