/*
Copyright 2025 The KGCL Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging constructs the module's logr.Logger. Every component
// in this repository depends on logr.Logger, never zap directly, so
// the concrete backend can be swapped without touching call sites.
package logging

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr.Logger backed by zap at the given level name
// ("debug", "info", "warn", "error"; anything else defaults to "info").
// level is typically sourced from the KGCL_LOG_LEVEL environment
// variable.
func New(level string) logr.Logger {
	zl := zapLevel(level)
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLog, err := cfg.Build()
	if err != nil {
		// Fall back to a discard logger rather than panic: logging must
		// never be the reason the engine fails to start.
		zapLog = zap.NewNop()
	}
	return zapr.NewLogger(zapLog)
}

func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Discard returns a logr.Logger that drops everything, for tests that
// don't care about log output.
func Discard() logr.Logger {
	return logr.Discard()
}
