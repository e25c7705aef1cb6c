// Package logging provides category-keyed structured logging for pagecraft.
// Every subsystem logs through a named child of one shared zap logger, so a
// single config switch turns the whole engine silent (the default) or verbose.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Category names the subsystem a log line belongs to.
type Category string

const (
	CategoryExtract   Category = "extract"   // JSON extraction and repair
	CategorySanitize  Category = "sanitize"  // Tree sanitizer, id assignment
	CategoryReconcile Category = "reconcile" // Template upgrade/overlay
	CategoryImages    Category = "images"    // Image resolver and router
	CategoryCheckout  Category = "checkout"  // Purchase-option alignment
	CategoryGenerate  Category = "generate"  // Orchestrator, repair phases
	CategoryStream    Category = "stream"    // Streaming message extractor
	CategoryStore     Category = "store"     // Attempt audit store
	CategoryAPI       Category = "api"       // Model API calls
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// SetRoot installs the process-wide root logger. Call once at startup;
// before that every Get returns a nop logger.
func SetRoot(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

// Get returns the logger for a category.
func Get(c Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(c))
}

// Sync flushes buffered log entries. Safe to call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
