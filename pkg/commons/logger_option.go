// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package commons

type loggerOptions struct {
	name       string
	path       string
	level      string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

type LoggerOption func(*loggerOptions)

func defaultLoggerOptions() *loggerOptions {
	return &loggerOptions{
		name:       "cartline",
		path:       "logs",
		level:      "info",
		maxSizeMB:  100,
		maxBackups: 5,
		maxAgeDays: 30,
	}
}

// Name sets the service name stamped on every log line and used for the
// rotated file name.
func Name(name string) LoggerOption {
	return func(o *loggerOptions) {
		o.name = name
	}
}

// Path sets the directory rotated log files are written under.
func Path(path string) LoggerOption {
	return func(o *loggerOptions) {
		o.path = path
	}
}

// Level sets the minimum level, parsed with zapcore semantics
// (debug, info, warn, error, dpanic, panic, fatal).
func Level(level string) LoggerOption {
	return func(o *loggerOptions) {
		o.level = level
	}
}

// Rotation overrides the lumberjack rotation policy.
func Rotation(maxSizeMB, maxBackups, maxAgeDays int) LoggerOption {
	return func(o *loggerOptions) {
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
		o.maxAgeDays = maxAgeDays
	}
}
