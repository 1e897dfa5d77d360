package capture

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/logging"
)

// Source yields live frames, for example a camera.
type Source interface {
	// Read returns the most recent frame.
	Read(ctx context.Context) (images.Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (images.Frame, error)

// Read calls f.
func (f SourceFunc) Read(ctx context.Context) (images.Frame, error) {
	return f(ctx)
}

// BurstConfig tunes the stability wait and the burst that follows it.
type BurstConfig struct {
	// Motion level below which the scene counts as stable.
	StabilityThreshold float64 `json:"stabilityThreshold" yaml:"stabilityThreshold" validate:"gt=0"`
	// Maximum unstable readings before capturing anyway.
	MaxWaitAttempts int `json:"maxWaitAttempts" yaml:"maxWaitAttempts" validate:"gte=0"`
	// Delay between unstable readings.
	WaitInterval time.Duration `json:"waitInterval" yaml:"waitInterval" validate:"gte=0"`
	// Burst length once the scene is stable.
	StableFrames int `json:"stableFrames" yaml:"stableFrames" validate:"gte=1"`
	// Burst length when the wait gave up.
	UnstableFrames int `json:"unstableFrames" yaml:"unstableFrames" validate:"gte=1"`
	// Delay between burst frames.
	FrameDelay time.Duration `json:"frameDelay" yaml:"frameDelay" validate:"gte=0"`
}

// DefaultBurstConfig waits up to 2 s for stillness, then picks the best of 3 (or 7) frames.
func DefaultBurstConfig() BurstConfig {
	return BurstConfig{
		StabilityThreshold: 15,
		MaxWaitAttempts:    20,
		WaitInterval:       100 * time.Millisecond,
		StableFrames:       3,
		UnstableFrames:     7,
		FrameDelay:         20 * time.Millisecond,
	}
}

// Result is the outcome of one burst capture.
type Result struct {
	Frame images.Frame
	// Sharpness of Frame.
	Sharpness float64
	// Whether the stability wait succeeded before the burst.
	Stable bool
	// Unstable readings seen while waiting.
	Attempts int
	// Sharpness of every burst frame in capture order.
	Scores []float64
	Err    error
}

// Capturer runs stability-gated burst captures against a Source.
type Capturer struct {
	src    Source
	cfg    BurstConfig
	motion *MotionTracker
	log    logrus.FieldLogger
}

// NewCapturer creates a capturer. A nil log discards output.
//
// Arguments:
//   - src: The frame source.
//   - cfg: Burst tuning. Both burst lengths must be at least 1.
//   - log: The logger.
//
// Returns:
//   - *Capturer: The capturer.
//   - error: The validation failure for cfg, or a nil source.
func NewCapturer(src Source, cfg BurstConfig, log logrus.FieldLogger) (*Capturer, error) {
	if src == nil {
		return nil, errors.New("capture: source is nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid burst config")
	}
	return &Capturer{
		src:    src,
		cfg:    cfg,
		motion: NewMotionTracker(),
		log:    logging.OrDiscard(log),
	}, nil
}

// Capture starts a capture in the background.
//
// The returned channel yields exactly one Result and is then closed.
//
// @example
//
//	res := <-capturer.Capture(ctx)
//	if res.Err == nil {
//	    _ = capture.SaveJPEG("capture.jpg", res.Frame, capture.DefaultJPEGQuality)
//	}
func (c *Capturer) Capture(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		out <- c.capture(ctx)
	}()
	return out
}

func (c *Capturer) capture(ctx context.Context) Result {
	stable, attempts, err := c.waitStable(ctx)
	if err != nil {
		return Result{Err: err}
	}
	if !stable {
		c.log.WithField("attempts", attempts).Warn("scene never settled, capturing anyway")
	}

	count := c.cfg.UnstableFrames
	if stable {
		count = c.cfg.StableFrames
	}

	frames := make([]images.Frame, 0, count)
	scores := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		if i > 0 {
			if err := sleep(ctx, c.cfg.FrameDelay); err != nil {
				return Result{Err: err}
			}
		}
		frame, err := c.src.Read(ctx)
		if err != nil {
			return Result{Err: errors.Wrap(err, "read burst frame")}
		}
		frames = append(frames, frame)
		scores = append(scores, Sharpness(frame))
	}

	if len(scores) == 0 {
		return Result{Stable: stable, Attempts: attempts, Err: ErrNoFrames}
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	c.log.WithFields(logrus.Fields{
		"stable":    stable,
		"scores":    scores,
		"sharpness": scores[best],
	}).Info("burst captured")

	return Result{
		Frame:     frames[best],
		Sharpness: scores[best],
		Stable:    stable,
		Attempts:  attempts,
		Scores:    scores,
	}
}

// waitStable reads frames until the motion level drops below the threshold or the
// attempts run out.
func (c *Capturer) waitStable(ctx context.Context) (bool, int, error) {
	attempts := 0
	for attempts < c.cfg.MaxWaitAttempts {
		frame, err := c.src.Read(ctx)
		if err != nil {
			return false, attempts, errors.Wrap(err, "read frame")
		}

		level := c.motion.Level(frame)
		c.log.WithFields(logrus.Fields{"attempt": attempts + 1, "motion": level}).Debug("motion level")
		if level < c.cfg.StabilityThreshold {
			return true, attempts, nil
		}

		attempts++
		if err := sleep(ctx, c.cfg.WaitInterval); err != nil {
			return false, attempts, err
		}
	}
	return false, attempts, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
