package utils

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions controls NewLogger
type LogOptions struct {
	// Level is a logrus level name; it wins over Verbose when valid
	Level   string
	Verbose bool
	// Dir enables a rotated restock-watcher.log next to the console output
	Dir string
}

// NewLogger creates the process logger
func NewLogger(opts LogOptions) (*logrus.Logger, error) {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	logger.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if opts.Level != "" {
		if level, err := logrus.ParseLevel(opts.Level); err == nil {
			logger.SetLevel(level)
		}
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, "restock-watcher.log"),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		}))
	}

	return logger, nil
}
