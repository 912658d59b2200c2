// Package logging provides config-driven categorized file-based logging for maid-runner.
// Logs are written to .maid/logs/ with separate files per category.
// Logging is controlled by debug_mode in .maid/config.yaml - when false, no logs are written.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and initialization
	CategoryManifest  Category = "manifest"  // Manifest loading and indexing
	CategoryChain     Category = "chain"     // Supersession chain resolution
	CategoryExtract   Category = "extract"   // Source parsing, AST extraction
	CategoryValidate  Category = "validate"  // Expected-vs-actual validation
	CategoryGraph     Category = "graph"     // Knowledge graph construction
	CategoryQuery     Category = "query"     // Graph traversal queries
	CategoryKB        Category = "kb"        // Mangle datalog engine
	CategoryCoherence Category = "coherence" // Architectural coherence checks
	CategoryCache     Category = "cache"     // Resolved-chain cache
	CategoryWatch     Category = "watch"     // Manifest directory watching
)

// loggingConfig mirrors the logging section of .maid/config.yaml.
type loggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

type configFile struct {
	Logging loggingConfig `yaml:"logging"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    loggingConfig
	configMu  sync.RWMutex
	logLevel  int
)

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Initialize sets up the logging directory and loads config.
// Should be called once at startup with the workspace path.
func Initialize(ws string) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}

	workspace = ws
	logsDir = filepath.Join(workspace, ".maid", "logs")

	if err := loadConfig(); err != nil {
		// Default to disabled when config is unreadable
		config.DebugMode = false
	}

	if !config.DebugMode {
		return nil // Silent no-op outside debug mode
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== maid-runner logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Log level: %s", config.Level)
	return nil
}

func loadConfig() error {
	configMu.Lock()
	defer configMu.Unlock()

	path := filepath.Join(workspace, ".maid", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	config = cf.Logging

	switch config.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled checks whether a category should log.
// All categories are enabled unless explicitly disabled in config.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if len(config.Categories) == 0 {
		return true
	}
	enabled, ok := config.Categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *Logger {
	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	l := &Logger{category: category}
	if IsCategoryEnabled(category) && logsDir != "" {
		path := filepath.Join(logsDir, string(category)+".log")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			l.file = f
			l.logger = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
		}
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level int, prefix, format string, args ...interface{}) {
	if l.logger == nil || level < logLevel {
		return
	}
	l.logger.Printf(prefix+format, args...)
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "[WARN] ", format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "[ERROR] ", format, args...)
}

// CloseAll flushes and closes every open category log file.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience helpers mirroring the category set.

func Manifest(format string, args ...interface{}) { Get(CategoryManifest).Info(format, args...) }

func ManifestDebug(format string, args ...interface{}) {
	Get(CategoryManifest).Debug(format, args...)
}

func Chain(format string, args ...interface{}) { Get(CategoryChain).Info(format, args...) }

func ChainDebug(format string, args ...interface{}) { Get(CategoryChain).Debug(format, args...) }

func Extract(format string, args ...interface{}) { Get(CategoryExtract).Info(format, args...) }

func ExtractDebug(format string, args ...interface{}) { Get(CategoryExtract).Debug(format, args...) }

func Validate(format string, args ...interface{}) { Get(CategoryValidate).Info(format, args...) }

func ValidateDebug(format string, args ...interface{}) {
	Get(CategoryValidate).Debug(format, args...)
}

func Graph(format string, args ...interface{}) { Get(CategoryGraph).Info(format, args...) }

func GraphDebug(format string, args ...interface{}) { Get(CategoryGraph).Debug(format, args...) }

func Query(format string, args ...interface{}) { Get(CategoryQuery).Info(format, args...) }

func QueryDebug(format string, args ...interface{}) { Get(CategoryQuery).Debug(format, args...) }

func KB(format string, args ...interface{}) { Get(CategoryKB).Info(format, args...) }

func KBDebug(format string, args ...interface{}) { Get(CategoryKB).Debug(format, args...) }

func Coherence(format string, args ...interface{}) { Get(CategoryCoherence).Info(format, args...) }

func CoherenceDebug(format string, args ...interface{}) {
	Get(CategoryCoherence).Debug(format, args...)
}

func Cache(format string, args ...interface{}) { Get(CategoryCache).Info(format, args...) }

func CacheDebug(format string, args ...interface{}) { Get(CategoryCache).Debug(format, args...) }

func Watch(format string, args ...interface{}) { Get(CategoryWatch).Info(format, args...) }

func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
