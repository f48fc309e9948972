// Package logging builds the secondary error channel. Wrappers never print
// internal failures over the wrapped program's output; they go here instead.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the error channel.
type Options struct {
	// ErrorLogPath receives JSON lines at warn level and above.
	ErrorLogPath string
	// Debug additionally writes everything to Console.
	Debug   bool
	Console io.Writer
}

// New builds the logger. The returned close function flushes and releases
// the log file. When nothing can be opened a no-op logger is returned.
func New(opts Options) (*zap.Logger, func()) {
	var cores []zapcore.Core
	closers := []func(){}

	if opts.ErrorLogPath != "" {
		if f, err := openLogFile(opts.ErrorLogPath); err == nil {
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(fileEncoderConfig()),
				zapcore.AddSync(f),
				zap.WarnLevel,
			))
			closers = append(closers, func() { _ = f.Close() })
		}
	}

	if opts.Debug {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zapcore.Lock(zapcore.AddSync(console)),
			zap.DebugLevel,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.Int("pid", os.Getpid()))
	return logger, func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}
}

func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}
