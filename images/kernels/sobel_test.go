package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// grid is a row-major intensity field.
type grid struct {
	w   int
	pix []float64
}

func (g grid) Gray(x, y int) float64 { return g.pix[y*g.w+x] }

func TestSobelMagnitude_Flat(t *testing.T) {
	g := grid{w: 3, pix: []float64{7, 7, 7, 7, 7, 7, 7, 7, 7}}
	assert.Zero(t, SobelMagnitude(g, 1, 1))
}

func TestSobelMagnitude_Edges(t *testing.T) {
	tests := []struct {
		name   string
		pix    []float64
		gx, gy float64
	}{
		{
			name: "vertical edge",
			pix:  []float64{0, 0, 10, 0, 0, 10, 0, 0, 10},
			gx:   40,
		},
		{
			name: "horizontal edge",
			pix:  []float64{0, 0, 0, 0, 0, 0, 10, 10, 10},
			gy:   40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := grid{w: 3, pix: tt.pix}
			assert.Equal(t, tt.gx, SobelX.Convolve(g, 1, 1))
			assert.Equal(t, tt.gy, SobelY.Convolve(g, 1, 1))
			assert.Equal(t, 40.0, SobelMagnitude(g, 1, 1))
		})
	}
}

func TestSobelMagnitude_Diagonal(t *testing.T) {
	// gx = 30, gy = 30 → 30√2.
	g := grid{w: 3, pix: []float64{0, 0, 0, 0, 0, 10, 0, 10, 10}}
	assert.InDelta(t, 42.4264, SobelMagnitude(g, 1, 1), 1e-4)
}
