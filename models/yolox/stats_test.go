package yolox

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/models/postprocess"
)

func TestRates(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		ms, fps int
	}{
		{0, 0, 0},
		{400 * time.Microsecond, 0, 0},
		{600 * time.Microsecond, 1, 1000},
		{3 * time.Millisecond, 3, 333},
		{16*time.Millisecond + 600*time.Microsecond, 17, 59},
		{1500 * time.Millisecond, 1500, 1},
	}

	for _, tt := range tests {
		ms, fps := Rates(tt.elapsed)
		assert.Equal(t, tt.ms, ms, "ms for %s", tt.elapsed)
		assert.Equal(t, tt.fps, fps, "fps for %s", tt.elapsed)
	}
}

func TestObjectness(t *testing.T) {
	o := NewObjectness()
	assert.Equal(t, ObjectnessStats{}, o.Summary(), "empty accumulator summarizes to zeros")

	for _, v := range []float32{0.2, 0.8, 0.5} {
		o.Observe(v)
	}
	s := o.Summary()
	assert.Equal(t, float32(0.2), s.Min)
	assert.Equal(t, float32(0.8), s.Max)
	assert.InDelta(t, 0.5, s.Mean, 1e-6)

	other := NewObjectness()
	other.Observe(0.1)
	o.Merge(other)
	o.Merge(NewObjectness())
	assert.Equal(t, float32(0.1), o.Summary().Min)
	assert.Equal(t, 4, o.Count())
}

func TestObjectness_SkipsNaN(t *testing.T) {
	o := NewObjectness()
	o.Observe(0.2)
	o.Observe(math32.NaN())
	o.Observe(0.6)

	s := o.Summary()
	assert.Equal(t, float32(0.2), s.Min)
	assert.Equal(t, float32(0.6), s.Max)
	assert.InDelta(t, 0.4, s.Mean, 1e-6)
	assert.Equal(t, 3, o.Count())

	only := NewObjectness()
	only.Observe(math32.NaN())
	assert.Equal(t, ObjectnessStats{}, only.Summary())

	o.Merge(only)
	assert.InDelta(t, 0.4, o.Summary().Mean, 1e-6)
	assert.Equal(t, 4, o.Count())
}

func TestNewModelStats(t *testing.T) {
	dets := []postprocess.Detection{
		{ClassID: ClassFace, ClassName: FaceClassName, Box: images.Box{X2: 1, Y2: 1}},
		{ClassID: ClassDocQuad, ClassName: DocQuadClassName, Box: images.Box{X2: 1, Y2: 1}},
		{ClassID: ClassDocQuad, ClassName: DocQuadClassName, Box: images.Box{X2: 1, Y2: 1}},
	}
	obj := NewObjectness()
	obj.Observe(0.3)

	s := NewModelStats(obj, DefaultNumAnchors, dets, 5*time.Millisecond)
	assert.Equal(t, DefaultNumAnchors, s.TotalDetections)
	assert.Equal(t, 3, s.ValidDetections)
	assert.Equal(t, 1, s.FaceDetections)
	assert.Equal(t, 2, s.DocDetections)
	assert.Equal(t, 5, s.ProcessingTimeMs)
	assert.Equal(t, 200, s.FPS)
}

func TestClassNames(t *testing.T) {
	assert.Equal(t, "face", ClassName(ClassFace))
	assert.Equal(t, "doc_quad", ClassName(ClassDocQuad))
	assert.Equal(t, "", ClassName(NumClasses))

	id, ok := ClassID("doc_quad")
	assert.True(t, ok)
	assert.Equal(t, ClassDocQuad, id)
	_, ok = ClassID("cat")
	assert.False(t, ok)
}
