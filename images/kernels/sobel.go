// Package kernels - 3×3 convolution kernels sampled over frame luminance.
package kernels

import "math"

// Kernel3x3 is a row-major 3×3 convolution kernel.
type Kernel3x3 [9]float64

var (
	// SobelX responds to horizontal intensity changes (vertical edges).
	SobelX = Kernel3x3{-1, 0, 1, -2, 0, 2, -1, 0, 1}
	// SobelY responds to vertical intensity changes (horizontal edges).
	SobelY = Kernel3x3{-1, -2, -1, 0, 0, 0, 1, 2, 1}
)

// Luminance samples a single-channel intensity at integer coordinates.
type Luminance interface {
	Gray(x, y int) float64
}

// Convolve applies k centred on (x, y).
//
// Arguments:
//   - src: The intensity source. (x±1, y±1) must be inside it.
//   - k: The kernel.
//   - x, y: The centre pixel.
//
// Returns:
//   - float64: The weighted sum of the 3×3 neighbourhood.
func (k Kernel3x3) Convolve(src Luminance, x, y int) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if w := k[i*3+j]; w != 0 {
				sum += w * src.Gray(x+j-1, y+i-1)
			}
		}
	}
	return sum
}

// SobelMagnitude returns the gradient magnitude √(gx² + gy²) at (x, y).
func SobelMagnitude(src Luminance, x, y int) float64 {
	gx := SobelX.Convolve(src, x, y)
	gy := SobelY.Convolve(src, x, y)
	return math.Hypot(gx, gy)
}
