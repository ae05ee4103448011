// Package logger exposes the process-wide Zap logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.Mutex
	sugar *zap.SugaredLogger
)

// Init builds the shared logger. "production" selects the JSON encoder;
// everything else gets the console encoder with debug enabled. Calls after
// the first are no-ops.
func Init(env string) {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		sugar = build(env).Sugar()
	}
}

func build(env string) *zap.Logger {
	var base *zap.Logger
	var err error
	if env == "production" {
		base, err = zap.NewProduction()
	} else {
		base, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return base
}

// Get returns the shared sugared logger, initializing a development logger
// if Init was never called.
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if sugar == nil {
		sugar = build("development").Sugar()
	}
	return sugar
}

// Sync flushes buffered entries. Call on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if sugar != nil {
		_ = sugar.Sync()
	}
}
