package yolox

// Class indices of the detector, in output column order after objectness.
const (
	ClassFace = iota
	ClassDocQuad
	NumClasses
)

// Class names as reported in detections.
const (
	FaceClassName    = "face"
	DocQuadClassName = "doc_quad"
)

var classNames = [NumClasses]string{
	ClassFace:    FaceClassName,
	ClassDocQuad: DocQuadClassName,
}

// ClassName returns the label for a class index, or "" when out of range.
func ClassName(id int) string {
	if id < 0 || id >= NumClasses {
		return ""
	}
	return classNames[id]
}

// ClassID returns the index for a label.
func ClassID(name string) (int, bool) {
	for i, n := range classNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
