// Package yolox - Decoding of YOLOX-style face / document-quad detector outputs.
package yolox

import "github.com/nvr-ai/cam-detector/images"

// Default decoding constants for the 640×640 face/doc_quad model.
const (
	DefaultNumAnchors          = 8400
	DefaultObjectnessThreshold = float32(0.5)
	DefaultScoreThreshold      = float32(0.6)
	DefaultMinBoxSize          = float32(5)
	DefaultMaxBoxSize          = float32(1000)
)

// Config holds the decoder thresholds and model geometry.
type Config struct {
	// Side length of the square model input.
	InputSize int `json:"inputSize" yaml:"inputSize" validate:"gt=0"`
	// Number of anchors in the model output.
	NumAnchors int `json:"numAnchors" yaml:"numAnchors" validate:"gt=0"`
	// Anchors with objectness <= this value are skipped.
	ObjectnessThreshold float32 `json:"objectnessThreshold" yaml:"objectnessThreshold" validate:"gte=0,lte=1"`
	// Anchors whose best fused score is <= this value are skipped.
	ScoreThreshold float32 `json:"scoreThreshold" yaml:"scoreThreshold" validate:"gte=0,lte=1"`
	// Tensor-space width and height must lie strictly inside (MinBoxSize, MaxBoxSize).
	MinBoxSize float32 `json:"minBoxSize" yaml:"minBoxSize" validate:"gte=0"`
	MaxBoxSize float32 `json:"maxBoxSize" yaml:"maxBoxSize" validate:"gtfield=MinBoxSize"`
	// Number of goroutines decoding anchor chunks. 0 or 1 decodes serially.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// DefaultConfig returns the configuration of the shipped detector.
func DefaultConfig() Config {
	return Config{
		InputSize:           images.DefaultLetterboxSide,
		NumAnchors:          DefaultNumAnchors,
		ObjectnessThreshold: DefaultObjectnessThreshold,
		ScoreThreshold:      DefaultScoreThreshold,
		MinBoxSize:          DefaultMinBoxSize,
		MaxBoxSize:          DefaultMaxBoxSize,
	}
}
