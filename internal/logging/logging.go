// Package logging builds the zap logger socksrelay reports to.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/die-net/socksrelay/internal/config"
)

const timeLayout = "2006-01-02 15:04:05.000"

// New returns a console-encoded logger at the level cfg selects, writing to
// stderr or, when a filename is set, to a size-rotated file. The returned
// closer flushes and releases the output.
func New(cfg *config.Config) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel())
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var ws zapcore.WriteSyncer
	var out io.Closer = nopCloser{}
	if cfg.Log.Filename != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Log.Filename,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}
		ws = zapcore.AddSync(lj)
		out = lj
	} else {
		ws = zapcore.Lock(os.Stderr)
	}

	logger := NewWithWriter(ws, level)
	return logger, closerFunc(func() error {
		_ = logger.Sync()
		return out.Close()
	}), nil
}

// NewWithWriter returns a console-encoded logger writing to ws.
func NewWithWriter(ws zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	})
	return zap.New(zapcore.NewCore(enc, ws, level))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
