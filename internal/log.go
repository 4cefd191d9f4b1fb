package internal

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	// Verbosity is the -v count: 0 warn, 1 info, 2+ debug.
	Verbosity int
	// File, when set, additionally receives JSON lines at debug level.
	File string
}

func levelForVerbosity(v int) zapcore.Level {
	switch {
	case v <= 0:
		return zapcore.WarnLevel
	case v == 1:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// NewLogger builds a console logger on stderr, teed into an optional JSON log file.
// The returned cleanup flushes and closes the file.
func NewLogger(opts LogOptions) (*zap.Logger, func(), error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		levelForVerbosity(opts.Verbosity),
	)

	cores := []zapcore.Core{console}
	var f *os.File
	if opts.File != "" {
		var err error
		f, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() {
		_ = logger.Sync()
		if f != nil {
			f.Close()
		}
	}
	return logger, cleanup, nil
}
