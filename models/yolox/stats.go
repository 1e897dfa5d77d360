package yolox

import (
	"math"
	"time"

	"github.com/chewxy/math32"

	"github.com/nvr-ai/cam-detector/models/postprocess"
)

// Objectness accumulates min, max and mean objectness over anchors.
//
// NaN readings are counted as observed but left out of the summary.
type Objectness struct {
	min   float32
	max   float32
	sum   float64
	count int
	nan   int
}

// NewObjectness creates an empty accumulator.
func NewObjectness() Objectness {
	return Objectness{min: math32.Inf(1), max: math32.Inf(-1)}
}

// Observe records one anchor's objectness.
func (o *Objectness) Observe(v float32) {
	o.count++
	if math32.IsNaN(v) {
		o.nan++
		return
	}
	o.min = math32.Min(o.min, v)
	o.max = math32.Max(o.max, v)
	o.sum += float64(v)
}

// Merge folds another accumulator into o.
func (o *Objectness) Merge(other Objectness) {
	if other.count == 0 {
		return
	}
	o.min = math32.Min(o.min, other.min)
	o.max = math32.Max(o.max, other.max)
	o.sum += other.sum
	o.count += other.count
	o.nan += other.nan
}

// Count returns the number of observed anchors, NaN readings included.
func (o Objectness) Count() int {
	return o.count
}

// Summary returns the min/max/mean view over the finite readings. An accumulator with no
// finite readings summarizes to zeros.
func (o Objectness) Summary() ObjectnessStats {
	n := o.count - o.nan
	if n == 0 {
		return ObjectnessStats{}
	}
	return ObjectnessStats{
		Min:  o.min,
		Max:  o.max,
		Mean: float32(o.sum / float64(n)),
	}
}

// ObjectnessStats summarizes objectness over every anchor of a frame.
type ObjectnessStats struct {
	Min  float32 `json:"min"`
	Max  float32 `json:"max"`
	Mean float32 `json:"mean"`
}

// ModelStats is the per-frame summary. It is recomputed from scratch for every frame.
type ModelStats struct {
	Objectness ObjectnessStats `json:"objectness"`
	// Number of anchors inspected.
	TotalDetections int `json:"totalDetections"`
	// Detections surviving NMS; equals FaceDetections + DocDetections.
	ValidDetections int `json:"validDetections"`
	FaceDetections  int `json:"faceDetections"`
	DocDetections   int `json:"docDetections"`
	// Decode plus NMS time in whole milliseconds. Inference time is not included.
	ProcessingTimeMs int `json:"processingTime"`
	// round(1000 / ProcessingTimeMs), or 0 when ProcessingTimeMs is 0.
	FPS int `json:"fps"`
}

// NewModelStats builds the frame summary.
//
// Arguments:
//   - obj: Objectness accumulated over all anchors.
//   - totalAnchors: The number of anchors in the output.
//   - detections: The detections after NMS.
//   - elapsed: Time spent decoding and suppressing.
//
// Returns:
//   - ModelStats: The summary.
func NewModelStats(obj Objectness, totalAnchors int, detections []postprocess.Detection, elapsed time.Duration) ModelStats {
	ms, fps := Rates(elapsed)
	return ModelStats{
		Objectness:       obj.Summary(),
		TotalDetections:  totalAnchors,
		ValidDetections:  len(detections),
		FaceDetections:   postprocess.CountByClass(detections, FaceClassName),
		DocDetections:    postprocess.CountByClass(detections, DocQuadClassName),
		ProcessingTimeMs: ms,
		FPS:              fps,
	}
}

// Rates converts an elapsed duration into whole milliseconds and frames per second.
//
// The rate is derived from the rounded milliseconds so that a zero time always reports
// zero fps.
func Rates(elapsed time.Duration) (ms int, fps int) {
	ms = int(math.Round(float64(elapsed) / float64(time.Millisecond)))
	if ms <= 0 {
		return 0, 0
	}
	return ms, int(math.Round(1000 / float64(ms)))
}
