package yolox

import (
	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/inference"
	"github.com/nvr-ai/cam-detector/models/postprocess"
)

// Decoder turns raw anchor rows into calibrated detections.
type Decoder struct {
	cfg Config
}

// NewDecoder creates a decoder.
func NewDecoder(cfg Config) *Decoder {
	return &Decoder{cfg: cfg}
}

// Config returns the decoder configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Decode walks every anchor of a validated output and returns the candidates that pass
// both score gates and the geometric plausibility gate, mapped into source frame pixels.
//
// Every anchor contributes its objectness to the returned accumulator, candidate or not.
// When Workers > 1 the anchors are split into contiguous chunks decoded concurrently and
// concatenated in chunk order, so the result equals the serial walk.
//
// Arguments:
//   - out: An output that passed ValidateAnchors(cfg.NumAnchors).
//   - params: The letterbox parameters of the frame that produced out.
//
// Returns:
//   - []postprocess.Detection: Candidates in anchor order.
//   - Objectness: Objectness statistics over all anchors.
func (d *Decoder) Decode(out inference.RawOutput, params images.LetterboxParams) ([]postprocess.Detection, Objectness) {
	n := len(out.Data) / inference.AnchorStride

	parts := images.Partition(n, max(d.cfg.Workers, 1))
	dets := make([][]postprocess.Detection, len(parts))
	objs := make([]Objectness, len(parts))

	images.Parallel(parts, func(part, start, end int) {
		dets[part], objs[part] = d.decodeRange(out.Data, start, end, params)
	})

	var merged []postprocess.Detection
	obj := NewObjectness()
	for i := range parts {
		merged = append(merged, dets[i]...)
		obj.Merge(objs[i])
	}
	return merged, obj
}

func (d *Decoder) decodeRange(
	data []float32,
	start, end int,
	params images.LetterboxParams,
) ([]postprocess.Detection, Objectness) {
	var (
		dets []postprocess.Detection
		obj  = NewObjectness()
		side = float32(d.cfg.InputSize)
	)

	for i := start; i < end; i++ {
		row := data[i*inference.AnchorStride : (i+1)*inference.AnchorStride]
		cx, cy, w, h, objectness := row[0], row[1], row[2], row[3], row[4]

		obj.Observe(objectness)
		if !(objectness > d.cfg.ObjectnessThreshold) {
			continue
		}

		// First class wins ties.
		classID, score := 0, objectness*row[5]
		for c := 1; c < NumClasses; c++ {
			if s := objectness * row[5+c]; s > score {
				classID, score = c, s
			}
		}
		if !(score > d.cfg.ScoreThreshold) {
			continue
		}

		if !d.plausible(cx, cy, w, h, side) {
			continue
		}

		box := images.BoxFromCenter(cx, cy, w, h).Unletterbox(params)
		if box.Degenerate() {
			continue
		}

		dets = append(dets, postprocess.Detection{
			Box:       box,
			Score:     score,
			ClassID:   classID,
			ClassName: ClassName(classID),
		})
	}

	return dets, obj
}

// plausible rejects tensor-space boxes that are too small, too large or centered off-canvas.
func (d *Decoder) plausible(cx, cy, w, h, side float32) bool {
	return w > d.cfg.MinBoxSize && w < d.cfg.MaxBoxSize &&
		h > d.cfg.MinBoxSize && h < d.cfg.MaxBoxSize &&
		cx > 0 && cx < side &&
		cy > 0 && cy < side
}
