package oidcrp

import (
	"log"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// Logger is a generic logging interface shared across the module. The
// provider package declares the same method set on its own consumer
// interface, so any Logger built here can be passed there as well.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NoopLogger discards all output. It is the default everywhere a logger
// is optional.
type NoopLogger struct{}

func (NoopLogger) Debugf(string, ...any) {}
func (NoopLogger) Infof(string, ...any)  {}
func (NoopLogger) Warnf(string, ...any)  {}
func (NoopLogger) Errorf(string, ...any) {}

// StdLogger logs through the standard library log package.
type StdLogger struct{}

func (StdLogger) Debugf(format string, args ...any) { log.Printf("DEBUG: "+format, args...) }
func (StdLogger) Infof(format string, args ...any)  { log.Printf("INFO: "+format, args...) }
func (StdLogger) Warnf(format string, args ...any)  { log.Printf("WARN: "+format, args...) }
func (StdLogger) Errorf(format string, args ...any) { log.Printf("ERROR: "+format, args...) }

// NewLogrusLogger returns a Logger adapter for logrus.FieldLogger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLoggerAdapter{l}
}

type logrusLoggerAdapter struct{ l logrus.FieldLogger }

func (a *logrusLoggerAdapter) Debugf(format string, args ...any) { a.l.Debugf(format, args...) }
func (a *logrusLoggerAdapter) Infof(format string, args ...any)  { a.l.Infof(format, args...) }
func (a *logrusLoggerAdapter) Warnf(format string, args ...any)  { a.l.Warnf(format, args...) }
func (a *logrusLoggerAdapter) Errorf(format string, args ...any) { a.l.Errorf(format, args...) }

// NewZapLogger returns a Logger adapter for zap.SugaredLogger.
func NewZapLogger(l *zap.SugaredLogger) Logger {
	return &zapLoggerAdapter{l}
}

type zapLoggerAdapter struct{ l *zap.SugaredLogger }

func (a *zapLoggerAdapter) Debugf(format string, args ...any) { a.l.Debugf(format, args...) }
func (a *zapLoggerAdapter) Infof(format string, args ...any)  { a.l.Infof(format, args...) }
func (a *zapLoggerAdapter) Warnf(format string, args ...any)  { a.l.Warnf(format, args...) }
func (a *zapLoggerAdapter) Errorf(format string, args ...any) { a.l.Errorf(format, args...) }
