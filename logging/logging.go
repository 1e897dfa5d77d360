// Package logging - Structured logger construction for the detector binaries and packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FrameIDKey is the field carrying the per-frame correlation ID.
const FrameIDKey = "frame_id"

// Fields is an alias so callers need not import logrus for field maps.
type Fields = logrus.Fields

// Config controls logger output.
type Config struct {
	// Level is a logrus level name: trace, debug, info, warn, error.
	Level string `json:"level" yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	// File enables a rotating log file in addition to stderr when non-empty.
	File string `json:"file" yaml:"file"`
	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `json:"maxSizeMB" yaml:"maxSizeMB" validate:"gte=0"`
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups" validate:"gte=0"`
	// MaxAgeDays is the number of days to keep rotated files.
	MaxAgeDays int `json:"maxAgeDays" yaml:"maxAgeDays" validate:"gte=0"`
	// NoColors disables ANSI colors, useful when stderr is not a terminal.
	NoColors bool `json:"noColors" yaml:"noColors"`
}

// DefaultConfig logs at info level to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// New builds a logger from cfg.
//
// Arguments:
//   - cfg: The logger configuration.
//
// Returns:
//   - *logrus.Logger: A logger writing to stderr and, when cfg.File is set, a rotating file.
//   - error: An error if the level cannot be parsed.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetReportCaller(true)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:        cfg.NoColors,
		TimestampFormat: "2006-01-02 15:04:05.000",
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	writers := []io.Writer{os.Stderr}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
		})
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}
