package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/cam-detector/capture"
	"github.com/nvr-ai/cam-detector/config"
	"github.com/nvr-ai/cam-detector/detector"
	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/logging"
	"github.com/nvr-ai/cam-detector/models/yolox"
	"github.com/nvr-ai/cam-detector/profiler"
)

var (
	// color for face boxes
	green = color.RGBA{0, 255, 0, 0}
	// color for document boxes
	blue = color.RGBA{0, 0, 255, 0}
)

// camera reads frames from a video capture device.
type camera struct {
	dev *gocv.VideoCapture
	mat gocv.Mat
}

// Read implements capture.Source.
func (c *camera) Read(ctx context.Context) (images.Frame, error) {
	if err := ctx.Err(); err != nil {
		return images.Frame{}, err
	}
	if ok := c.dev.Read(&c.mat); !ok || c.mat.Empty() {
		return images.Frame{}, errors.New("cannot read camera frame")
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return images.Frame{}, errors.Wrap(err, "convert frame")
	}
	return images.FromImage(img), nil
}

func main() {
	var (
		deviceID   int
		configPath string
		showWindow bool
		cooldown   time.Duration
	)
	flag.IntVar(&deviceID, "device", 0, "Video capture device ID")
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.BoolVar(&showWindow, "show-window", true, "Show visualization window")
	flag.DurationVar(&cooldown, "cooldown", 5*time.Second, "Minimum time between automatic captures")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, deviceID, showWindow, cooldown, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, deviceID int, showWindow bool, cooldown time.Duration, logger *logrus.Logger) error {
	det, err := detector.NewBuilder().
		WithConfig(cfg.Detector()).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer det.Close()

	if err := det.LoadModel(ctx, cfg.Model.Provider); err != nil {
		return errors.Wrap(err, "load model")
	}
	st := det.Status()
	logger.WithFields(logrus.Fields{"provider": st.Active, "backend": st.Backend}).Info("model ready")

	// open webcam
	webcam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return errors.Wrapf(err, "open device %d", deviceID)
	}
	defer webcam.Close()

	// prepare image matrix
	img := gocv.NewMat()
	defer img.Close()

	cam := &camera{dev: webcam, mat: gocv.NewMat()}
	defer cam.mat.Close()
	capturer, err := capture.NewCapturer(cam, cfg.Capture.Burst, logger)
	if err != nil {
		return err
	}

	var window *gocv.Window
	if showWindow {
		window = gocv.NewWindow("Face / Document Detect")
		defer window.Close()
	}

	prof := profiler.New(profiler.Options{})
	go prof.Run(ctx, logger)

	var lastCapture time.Time

	logger.Infof("start reading camera device: %v", deviceID)
	for ctx.Err() == nil {
		if ok := webcam.Read(&img); !ok {
			return errors.Errorf("cannot read device %v", deviceID)
		}
		if img.Empty() {
			continue
		}

		frameDone := prof.StartOperation(profiler.StageFrame)
		frame, err := img.ToImage()
		if err != nil {
			logger.WithError(err).Warn("skipping frame")
			continue
		}

		res, err := det.Detect(ctx, images.FromImage(frame))
		if err != nil {
			logger.WithError(err).Warn("detect failed")
			continue
		}
		prof.RecordDuration(profiler.StagePreprocess, res.Timings.Preprocess)
		prof.RecordDuration(profiler.StageInference, res.Timings.Inference)
		prof.RecordDuration(profiler.StagePostprocess, res.Timings.Postprocess)
		prof.RecordMetric("faces", float64(res.Stats.FaceDetections))
		prof.RecordMetric("docs", float64(res.Stats.DocDetections))

		// draw a rectangle around each detection on the original image
		for _, d := range res.Detections {
			c := green
			if d.ClassID == yolox.ClassDocQuad {
				c = blue
			}
			r := image.Rect(int(d.Box.X1), int(d.Box.Y1), int(d.Box.X2), int(d.Box.Y2))
			gocv.Rectangle(&img, r, c, 3)
			gocv.PutText(&img, fmt.Sprintf("%s %.2f", d.ClassName, d.Score), image.Pt(r.Min.X, r.Min.Y-6), gocv.FontHersheyPlain, 1.2, c, 2)
		}
		gocv.PutText(&img, fmt.Sprintf("%s | %d ms | %d fps", res.Provider, res.Stats.ProcessingTimeMs, res.Stats.FPS), image.Pt(10, 20), gocv.FontHersheyPlain, 1.2, green, 2)

		frameDone()

		if cfg.Capture.Auto && time.Since(lastCapture) >= cooldown {
			if d, ok := cfg.Capture.Trigger.Evaluate(res.Detections); ok {
				lastCapture = time.Now()
				if err := saveCapture(ctx, capturer, cfg.Capture, d, logger); err != nil {
					logger.WithError(err).Error("capture failed")
				}
			}
		}

		// show the image in the window, and wait 1 millisecond
		if window != nil {
			window.IMShow(img)
			if window.WaitKey(1) == 27 {
				return nil
			}
		}
	}
	return nil
}

// saveCapture runs a burst and writes the sharpest frame as a JPEG.
func saveCapture(ctx context.Context, c *capture.Capturer, cfg config.CaptureConfig, d capture.Decision, logger logrus.FieldLogger) error {
	res := <-c.Capture(ctx)
	if res.Err != nil {
		return res.Err
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create capture dir")
	}
	path := filepath.Join(cfg.Dir, fmt.Sprintf("capture_%s.jpg", time.Now().Format("20060102_150405.000")))
	if err := capture.SaveJPEG(path, res.Frame, cfg.JPEGQuality); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"path":       path,
		"confidence": d.Confidence,
		"sharpness":  res.Sharpness,
		"stable":     res.Stable,
	}).Info("photo captured")
	return nil
}
