package logger

import (
	"io"

	"github.com/igorsal/routewarden/internal/interfaces"
)

// Adapter adapts Logger to interfaces.Logger
type Adapter struct {
	logger *Logger
}

// NewAdapter creates a stdout logger adapter
func NewAdapter(level, format string) interfaces.Logger {
	return &Adapter{
		logger: New(level, format),
	}
}

// NewWriterAdapter creates a logger adapter writing to w
func NewWriterAdapter(w io.Writer, level, format string) interfaces.Logger {
	return &Adapter{
		logger: NewWithWriter(w, level, format),
	}
}

// NewNop returns a logger that discards everything
func NewNop() interfaces.Logger {
	return &Adapter{
		logger: NewWithWriter(io.Discard, "disabled", "json"),
	}
}

func (a *Adapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, fields...)
}

func (a *Adapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, fields...)
}

func (a *Adapter) Warn(msg string, fields ...interface{}) {
	a.logger.Warn(msg, fields...)
}

func (a *Adapter) Error(msg string, err error, fields ...interface{}) {
	a.logger.Error(msg, err, fields...)
}

// Fatal logs a fatal message and exits
func (a *Adapter) Fatal(msg string, err error, fields ...interface{}) {
	a.logger.Fatal(msg, err, fields...)
}

// With returns a logger that adds fields to every event
func (a *Adapter) With(fields ...interface{}) interfaces.Logger {
	return &Adapter{logger: a.logger.With(fields...)}
}
