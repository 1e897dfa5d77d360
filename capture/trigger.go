package capture

import (
	"github.com/nvr-ai/cam-detector/models/postprocess"
	"github.com/nvr-ai/cam-detector/models/yolox"
)

// DefaultTriggerScore is the score both a face and a document must reach.
const DefaultTriggerScore = 0.8

// Trigger decides when a frame's detections warrant an automatic capture.
type Trigger struct {
	MinScore float32 `json:"minScore" yaml:"minScore" validate:"gte=0,lte=1"`
}

// Decision describes why a trigger fired.
type Decision struct {
	Face postprocess.Detection `json:"face"`
	Doc  postprocess.Detection `json:"doc"`
	// The higher of the two scores.
	Confidence float32 `json:"confidence"`
}

// NewTrigger returns a trigger at DefaultTriggerScore.
func NewTrigger() Trigger {
	return Trigger{MinScore: DefaultTriggerScore}
}

// Evaluate fires when a face and a document quad both score at least MinScore.
//
// Arguments:
//   - detections: One frame's detections. The first qualifying detection of each class
//     is used, which is the highest scoring one for NMS output.
//
// Returns:
//   - Decision: The qualifying pair, valid only when fired.
//   - bool: Whether the trigger fired.
func (t Trigger) Evaluate(detections []postprocess.Detection) (Decision, bool) {
	var (
		d               Decision
		hasFace, hasDoc bool
	)
	for _, det := range detections {
		if det.Score < t.MinScore {
			continue
		}
		switch {
		case !hasFace && det.ClassName == yolox.FaceClassName:
			d.Face, hasFace = det, true
		case !hasDoc && det.ClassName == yolox.DocQuadClassName:
			d.Doc, hasDoc = det, true
		}
	}
	if !hasFace || !hasDoc {
		return Decision{}, false
	}
	d.Confidence = max(d.Face.Score, d.Doc.Score)
	return d, true
}
