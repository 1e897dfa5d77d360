package yolox

import (
	"time"

	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/inference"
	"github.com/nvr-ai/cam-detector/models/postprocess"
)

// Postprocessor validates model outputs, decodes anchors, suppresses duplicates and
// summarizes the frame.
type Postprocessor struct {
	decoder *Decoder
	nms     postprocess.NMSConfig
	now     func() time.Time
}

// NewPostprocessor creates a postprocessor. The NMS class count is forced to NumClasses.
func NewPostprocessor(cfg Config, nms postprocess.NMSConfig) *Postprocessor {
	nms.NumClasses = NumClasses
	return &Postprocessor{
		decoder: NewDecoder(cfg),
		nms:     nms,
		now:     time.Now,
	}
}

// Process turns the first model output into final detections and statistics.
//
// Arguments:
//   - outputs: The model outputs in declaration order.
//   - params: The letterbox parameters of the frame that produced outputs.
//
// Returns:
//   - []postprocess.Detection: Faces first then document quads, each by descending score.
//   - ModelStats: The frame summary.
//   - error: inference.ErrNoOutputs or inference.ErrUnexpectedOutputShape.
func (p *Postprocessor) Process(
	outputs inference.Outputs,
	params images.LetterboxParams,
) ([]postprocess.Detection, ModelStats, error) {
	out, err := outputs.First()
	if err != nil {
		return nil, ModelStats{}, err
	}
	if err := out.ValidateAnchors(p.decoder.cfg.NumAnchors); err != nil {
		return nil, ModelStats{}, err
	}

	start := p.now()
	candidates, obj := p.decoder.Decode(out, params)
	detections := postprocess.ApplyNMS(candidates, p.nms)
	elapsed := p.now().Sub(start)

	return detections, NewModelStats(obj, p.decoder.cfg.NumAnchors, detections, elapsed), nil
}
