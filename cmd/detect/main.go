// Command detect runs the face / document-quad detector over image files and prints the
// detections as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/cam-detector/capture"
	"github.com/nvr-ai/cam-detector/config"
	"github.com/nvr-ai/cam-detector/detector"
	"github.com/nvr-ai/cam-detector/images"
	"github.com/nvr-ai/cam-detector/inference/providers"
	"github.com/nvr-ai/cam-detector/logging"
	"github.com/nvr-ai/cam-detector/util"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileResult is one line of output.
type fileResult struct {
	File    string            `json:"file"`
	Result  *detector.Result  `json:"result,omitempty"`
	Capture *capture.Decision `json:"capture,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func main() {
	var (
		configPath string
		modelPath  string
		provider   string
		pretty     bool
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&modelPath, "model", "", "Path to the ONNX model, overrides the config")
	flag.StringVar(&provider, "provider", "", "Execution provider: cpu, webgl, wasm or webgpu")
	flag.BoolVar(&pretty, "pretty", false, "Indent JSON output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] image|dir...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(configPath, modelPath, provider, pretty, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, modelPath, provider string, pretty bool, args []string) error {
	files, err := util.ExpandImagePaths(args)
	if err != nil {
		return err
	}

	// Flags win over .env and the config file.
	if modelPath != "" {
		os.Setenv(config.EnvModelPath, modelPath)
	}
	if provider != "" {
		p, err := providers.ParseExecutionProvider(provider)
		if err != nil {
			return err
		}
		os.Setenv(config.EnvProvider, p.String())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	det, err := detector.NewBuilder().
		WithConfig(cfg.Detector()).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer det.Close()

	ctx := context.Background()
	if err := det.LoadModel(ctx, cfg.Model.Provider); err != nil {
		return errors.Wrap(err, "load model")
	}
	if st := det.Status(); st.FallbackFrom != "" {
		logger.WithField("requested", st.FallbackFrom).Warn("running on cpu fallback")
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}

	trigger := cfg.Capture.Trigger
	failed := 0
	for _, file := range files {
		out := detectFile(ctx, det, trigger, file.Path)
		if out.Error != "" {
			failed++
			logger.WithFields(logrus.Fields{"file": file.Path, "error": out.Error}).Error("detection failed")
		}
		if err := enc.Encode(out); err != nil {
			return errors.Wrap(err, "write output")
		}
	}

	if failed > 0 {
		return errors.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func detectFile(ctx context.Context, det *detector.Detector, trigger capture.Trigger, file string) fileResult {
	out := fileResult{File: file}

	img, err := imaging.Open(file, imaging.AutoOrientation(true))
	if err != nil {
		out.Error = errors.Wrap(err, "decode image").Error()
		return out
	}

	res, err := det.Detect(ctx, images.FromImage(img))
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Result = res

	if d, ok := trigger.Evaluate(res.Detections); ok {
		out.Capture = &d
	}
	return out
}
