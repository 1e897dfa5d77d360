// Package detector - Frame-to-detections pipeline for the face / document-quad model.
package detector

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/inference"
	"github.com/nvr-ai/cam-detector/inference/providers"
	"github.com/nvr-ai/cam-detector/logging"
	"github.com/nvr-ai/cam-detector/models/postprocess"
	"github.com/nvr-ai/cam-detector/models/yolox"
)

// ErrBusy is returned when a detect, load or switch is already in flight on the detector.
var ErrBusy = errors.New("detector: busy")

// Timings breaks a Detect call down by stage.
type Timings struct {
	Preprocess  time.Duration `json:"preprocess"`
	Inference   time.Duration `json:"inference"`
	Postprocess time.Duration `json:"postprocess"`
}

// Result is the outcome of one frame.
type Result struct {
	// FrameID correlates log lines and captures for this frame.
	FrameID string `json:"frameId"`
	// Faces first then document quads, each by descending score.
	Detections []postprocess.Detection `json:"detections"`
	Stats      yolox.ModelStats        `json:"stats"`
	// The letterbox mapping used for this frame.
	Params images.LetterboxParams `json:"params"`
	// The provider chain entry and backend that ran inference.
	Provider providers.ExecutionProvider `json:"provider"`
	Backend  providers.Backend           `json:"backend"`
	Timings  Timings                     `json:"timings"`
}

// Detector runs the letterbox → encode → infer → decode → NMS pipeline.
//
// One frame is processed at a time. Detect, LoadModel, SwitchProvider and Reload share a
// busy lock; overlapping calls fail fast with ErrBusy.
type Detector struct {
	cfg     Config
	manager *providers.Manager
	encoder *inference.Encoder
	post    *yolox.Postprocessor
	log     logrus.FieldLogger
	// owned is the session factory the builder created, closed with the detector.
	owned io.Closer

	busy sync.Mutex

	lastMu sync.RWMutex
	last   *Result
}

func newDetector(cfg Config, factory providers.SessionFactory, owned io.Closer, log logrus.FieldLogger) *Detector {
	log = logging.OrDiscard(log)
	return &Detector{
		cfg:     cfg,
		manager: providers.NewManager(factory, cfg.ModelPath, cfg.Runtime, log),
		encoder: inference.NewEncoder(cfg.Decoder.InputSize),
		post:    yolox.NewPostprocessor(cfg.Decoder, cfg.NMS),
		log:     log,
		owned:   owned,
	}
}

// Detect processes one frame.
//
// A failed frame leaves Last() untouched.
//
// Arguments:
//   - ctx: Cancels the inference call.
//   - frame: The captured frame. It is not modified.
//
// Returns:
//   - *Result: Detections, statistics and timings.
//   - error: ErrBusy, inference.ErrModelNotLoaded, images.ErrInvalidFrame,
//     inference.ErrUnexpectedOutputShape, or the inference failure.
func (d *Detector) Detect(ctx context.Context, frame images.Frame) (*Result, error) {
	if !d.busy.TryLock() {
		return nil, ErrBusy
	}
	defer d.busy.Unlock()

	session, err := d.manager.Session()
	if err != nil {
		return nil, err
	}
	status := d.manager.Status()

	if err := frame.Validate(); err != nil {
		return nil, err
	}

	frameID := uuid.NewString()
	log := d.log.WithField(logging.FrameIDKey, frameID)

	start := time.Now()
	canvas, params := images.Letterbox(frame, d.cfg.Decoder.InputSize)
	input, err := d.encoder.Encode(canvas)
	if err != nil {
		return nil, err
	}
	defer d.encoder.Release(input)
	encoded := time.Now()

	outputs, err := session.Infer(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}
	inferred := time.Now()

	detections, stats, err := d.post.Process(outputs, params)
	if err != nil {
		log.WithError(err).Warn("dropping frame")
		return nil, err
	}
	done := time.Now()

	res := &Result{
		FrameID:    frameID,
		Detections: detections,
		Stats:      stats,
		Params:     params,
		Provider:   status.Active,
		Backend:    status.Backend,
		Timings: Timings{
			Preprocess:  encoded.Sub(start),
			Inference:   inferred.Sub(encoded),
			Postprocess: done.Sub(inferred),
		},
	}

	d.lastMu.Lock()
	d.last = res
	d.lastMu.Unlock()

	log.WithFields(logrus.Fields{
		"faces": stats.FaceDetections,
		"docs":  stats.DocDetections,
		"ms":    stats.ProcessingTimeMs,
	}).Debug("frame processed")

	return res, nil
}

// Last returns the most recent successful result.
func (d *Detector) Last() (*Result, bool) {
	d.lastMu.RLock()
	defer d.lastMu.RUnlock()
	return d.last, d.last != nil
}

// LoadModel loads the model on provider p.
func (d *Detector) LoadModel(ctx context.Context, p providers.ExecutionProvider) error {
	if !d.busy.TryLock() {
		return ErrBusy
	}
	defer d.busy.Unlock()
	return d.manager.LoadModel(ctx, p)
}

// SwitchProvider moves inference to provider p, falling back to cpu when p fails.
func (d *Detector) SwitchProvider(ctx context.Context, p providers.ExecutionProvider) error {
	if !d.busy.TryLock() {
		return ErrBusy
	}
	defer d.busy.Unlock()
	return d.manager.SwitchProvider(ctx, p)
}

// Reload reloads the model on the current provider.
func (d *Detector) Reload(ctx context.Context) error {
	if !d.busy.TryLock() {
		return ErrBusy
	}
	defer d.busy.Unlock()
	return d.manager.Reload(ctx)
}

// Status returns the provider state.
func (d *Detector) Status() providers.Status {
	return d.manager.Status()
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Close waits for any in-flight call and releases the session. When the builder created
// the ONNX Runtime factory, its environment is torn down too.
func (d *Detector) Close() error {
	d.busy.Lock()
	defer d.busy.Unlock()

	err := d.manager.Release()
	if d.owned != nil {
		if closeErr := d.owned.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close runtime")
		}
		d.owned = nil
	}
	return err
}
