// Package logging builds the process logger: slog call sites backed by a zap core.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding.
type Options struct {
	Verbose bool
	// Console forces the human-readable encoder; otherwise JSON lines are written.
	Console bool
	Output  io.Writer
}

// New returns a slog.Logger writing through zap, and the zap logger so the caller can Sync it.
func New(opts Options) (*slog.Logger, *zap.Logger) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	if opts.Console {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("15:04:05.000"))
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	zl := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
	return slog.New(zapslog.NewHandler(zl.Core())), zl
}

// Setup installs the default logger for the process. Console encoding is used on a terminal.
func Setup(verbose bool) *zap.Logger {
	logger, zl := New(Options{Verbose: verbose, Console: IsTerminal(os.Stdout)})
	slog.SetDefault(logger)
	return zl
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
