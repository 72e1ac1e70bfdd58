// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package commons

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide logging contract. Every service component
// receives one through its constructor; nothing logs through the zap globals.
type Logger interface {
	Level() zapcore.Level
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	DPanic(args ...interface{})
	DPanicf(template string, args ...interface{})
	Panic(args ...interface{})
	Panicf(template string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	// Benchmark records how long a named operation took. Emitted at debug
	// level so production logs stay quiet unless tuned down.
	Benchmark(functionName string, duration time.Duration)

	// Tracef logs with the request identifier carried on the context, when one
	// is present. Falls back to a plain debug line otherwise.
	Tracef(ctx context.Context, format string, args ...interface{})

	Sync() error
}

type applicationLogger struct {
	sugar *zap.SugaredLogger
	level zapcore.Level
}

// NewApplicationLogger builds the standard service logger: console output for
// interactive runs plus a size-rotated file under the configured path.
func NewApplicationLogger(opts ...LoggerOption) (Logger, error) {
	options := defaultLoggerOptions()
	for _, opt := range opts {
		opt(options)
	}

	level, err := zapcore.ParseLevel(options.level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level %q: %w", options.level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = "ts"

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(options.path, fmt.Sprintf("%s.log", options.name)),
		MaxSize:    options.maxSizeMB,
		MaxBackups: options.maxBackups,
		MaxAge:     options.maxAgeDays,
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), level),
	)

	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", options.name)),
	)

	return &applicationLogger{
		sugar: logger.Sugar(),
		level: level,
	}, nil
}

func (l *applicationLogger) Level() zapcore.Level { return l.level }

func (l *applicationLogger) Debug(args ...interface{})                   { l.sugar.Debug(args...) }
func (l *applicationLogger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }
func (l *applicationLogger) Info(args ...interface{})                    { l.sugar.Info(args...) }
func (l *applicationLogger) Infof(template string, args ...interface{})  { l.sugar.Infof(template, args...) }
func (l *applicationLogger) Warn(args ...interface{})                    { l.sugar.Warn(args...) }
func (l *applicationLogger) Warnf(template string, args ...interface{})  { l.sugar.Warnf(template, args...) }
func (l *applicationLogger) Error(args ...interface{})                   { l.sugar.Error(args...) }
func (l *applicationLogger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }
func (l *applicationLogger) DPanic(args ...interface{})                  { l.sugar.DPanic(args...) }
func (l *applicationLogger) DPanicf(template string, args ...interface{}) {
	l.sugar.DPanicf(template, args...)
}
func (l *applicationLogger) Panic(args ...interface{})                   { l.sugar.Panic(args...) }
func (l *applicationLogger) Panicf(template string, args ...interface{}) { l.sugar.Panicf(template, args...) }
func (l *applicationLogger) Fatal(args ...interface{})                   { l.sugar.Fatal(args...) }
func (l *applicationLogger) Fatalf(template string, args ...interface{}) { l.sugar.Fatalf(template, args...) }

func (l *applicationLogger) Benchmark(functionName string, duration time.Duration) {
	l.sugar.Debugf("benchmark: %s took %s", functionName, duration)
}

func (l *applicationLogger) Tracef(ctx context.Context, format string, args ...interface{}) {
	if requestID := RequestID(ctx); requestID != "" {
		l.sugar.Debugf("[%s] %s", requestID, fmt.Sprintf(format, args...))
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *applicationLogger) Sync() error { return l.sugar.Sync() }
