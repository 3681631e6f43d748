// Package logging provides config-driven categorized logging for NorthStar.
// Every category is a named child of one zap logger. Categories can be
// switched off individually; a disabled category or an uninitialized package
// yields a no-op logger, so callers never need nil checks.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config and wiring
	CategoryScorer  Category = "scorer"  // COM-B behavioral scorer
	CategoryCoach   Category = "coach"   // Adaptive profile builder
	CategoryCatalog Category = "catalog" // Pillar catalog loading and reload
	CategoryStore   Category = "store"   // Run history persistence
	CategoryServer  Category = "server"  // HTTP adapter
	CategoryAudit   Category = "audit"   // Audit trail of engine runs
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // Output path; empty means stderr
	DebugMode  bool            // Forces debug level and caller annotations
	Categories map[string]bool // Per-category toggles; missing means enabled
}

// Logger is a categorized printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    *zap.Logger
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the root zap logger from options. It may be called again
// to reconfigure; previously returned category loggers keep the old sink.
func Initialize(o Options) error {
	var zc zap.Config
	if strings.EqualFold(o.Format, "console") || strings.EqualFold(o.Format, "text") {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level, err := ParseLevel(o.Level)
	if err != nil {
		return err
	}
	if o.DebugMode {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableCaller = !o.DebugMode
	if o.File != "" {
		zc.OutputPaths = []string{o.File}
	}

	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	InitializeWith(l, o)
	Boot("logging initialized: level=%s format=%s debug=%v", level, zc.Encoding, o.DebugMode)
	return nil
}

// InitializeWith installs an existing zap logger as the root.
func InitializeWith(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// Base returns the root zap logger, or a no-op logger before Initialize.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return zap.NewNop()
	}
	return base
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if base == nil {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the package is uninitialized or the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if categoryEnabled(category) {
		l.sugar = base.Named(string(category)).Sugar()
	}
	loggers[category] = l
	return l
}

// Enabled reports whether the logger writes anywhere.
func (l *Logger) Enabled() bool {
	return l.sugar != nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger that adds key-value context to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries. Call at shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return nil
	}
	return base.Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// Scorer logs to the scorer category
func Scorer(format string, args ...interface{}) {
	Get(CategoryScorer).Info(format, args...)
}

// ScorerDebug logs debug to the scorer category
func ScorerDebug(format string, args ...interface{}) {
	Get(CategoryScorer).Debug(format, args...)
}

// Coach logs to the coach category
func Coach(format string, args ...interface{}) {
	Get(CategoryCoach).Info(format, args...)
}

// CoachDebug logs debug to the coach category
func CoachDebug(format string, args ...interface{}) {
	Get(CategoryCoach).Debug(format, args...)
}

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Info(format, args...)
}

// CatalogDebug logs debug to the catalog category
func CatalogDebug(format string, args ...interface{}) {
	Get(CategoryCatalog).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// Server logs to the server category
func Server(format string, args ...interface{}) {
	Get(CategoryServer).Info(format, args...)
}

// ServerDebug logs debug to the server category
func ServerDebug(format string, args ...interface{}) {
	Get(CategoryServer).Debug(format, args...)
}
