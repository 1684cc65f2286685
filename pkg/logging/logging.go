// Package logging provides the zap-backed implementation of
// orchestrator.Logger used in production; tests use orchestrator.NoOpLogger
// instead.
package logging

import (
	"go.uber.org/zap"
)

// ZapLogger adapts a zap.SugaredLogger to the orchestrator.Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a production zap logger (JSON encoding, info level) wrapped as
// an orchestrator.Logger.
func New() (*ZapLogger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: logger.Sugar()}, nil
}

// NewDevelopment builds a human-readable console logger, useful when
// running the server locally.
func NewDevelopment() (*ZapLogger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: logger.Sugar()}, nil
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorw(msg, args...) }

// Sync flushes any buffered log entries. Call before process exit.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
