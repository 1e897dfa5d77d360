// Package postprocess - Detections and Non-Maximum Suppression.
package postprocess

import "github.com/nvr-ai/cam-detector/images"

// Detection is a single calibrated detection in source frame coordinates.
type Detection struct {
	// The bounding box of the detection, clamped to the frame.
	Box images.Box `json:"box"`
	// The fused class score, objectness * class probability.
	Score float32 `json:"score"`
	// The predicted class index.
	ClassID int `json:"classId"`
	// The predicted class name.
	ClassName string `json:"className"`
}

// CountByClass returns the number of detections carrying the given class name.
func CountByClass(detections []Detection, name string) int {
	n := 0
	for _, d := range detections {
		if d.ClassName == name {
			n++
		}
	}
	return n
}
