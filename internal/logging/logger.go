// Package logging provides categorized structured logging for chuck.
// Every subsystem logs through a Category so operators can filter the
// stream, and the whole tree shares one zap core whose level is set from
// the CLI's --log-level flag. Until Initialize is called all loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config, wiring
	CategoryAPI       Category = "api"       // Completion gateway calls
	CategoryManager   Category = "manager"   // Decision cycle and tables
	CategoryRegisters Category = "registers" // Register contents and locks
	CategoryAngels    Category = "angels"    // Worker lifecycle and thoughts
	CategoryEvaluator Category = "evaluator" // Probation and pleas
	CategorySpawner   Category = "spawner"   // Worker proposals
	CategoryParse     Category = "parse"     // Command parsing
	CategoryCLI       Category = "cli"       // Operator interaction
)

// Logger writes printf-style messages tagged with its category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	level   = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	loggers = make(map[Category]*Logger)
)

// ParseLevel maps an operator-facing level name to a zap level.
// Accepted (case-insensitive): DEBUG, INFO, WARNING/WARN, ERROR, CRITICAL.
// CRITICAL maps to dpanic, which only logs in the production config.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "INFO":
		return zapcore.InfoLevel, nil
	case "WARNING", "WARN", "":
		return zapcore.WarnLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "CRITICAL":
		return zapcore.DPanicLevel, nil
	default:
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q (valid: DEBUG, INFO, WARNING, ERROR, CRITICAL)", name)
	}
}

// Initialize builds the process logger. format is "json" or "console".
func Initialize(levelName, format string) error {
	lvl, err := ParseLevel(levelName)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	if format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	level.SetLevel(lvl)
	replace(logger)

	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", lvl, cfg.Encoding)
	return nil
}

// UseCore installs a caller-built core. Tests use it with zaptest/observer.
func UseCore(core zapcore.Core) {
	replace(zap.New(core))
}

func replace(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	loggers = make(map[Category]*Logger)
}

// SetLevel changes the level of the installed logger at runtime.
func SetLevel(lvl zapcore.Level) {
	level.SetLevel(lvl)
}

// Sync flushes buffered entries (call at shutdown).
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

// Get returns (or creates) a logger for the given category.
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
	l := &Logger{
		category: category,
		sugar:    base.Sugar().With("category", string(category)),
	}
	loggers[category] = l
	return l
}

// With returns a child logger carrying extra key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIWarn logs a warning to the api category
func APIWarn(format string, args ...interface{}) {
	Get(CategoryAPI).Warn(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Manager logs to the manager category
func Manager(format string, args ...interface{}) {
	Get(CategoryManager).Info(format, args...)
}

// ManagerDebug logs debug to the manager category
func ManagerDebug(format string, args ...interface{}) {
	Get(CategoryManager).Debug(format, args...)
}

// ManagerWarn logs a warning to the manager category
func ManagerWarn(format string, args ...interface{}) {
	Get(CategoryManager).Warn(format, args...)
}

// ManagerError logs an error to the manager category
func ManagerError(format string, args ...interface{}) {
	Get(CategoryManager).Error(format, args...)
}

// Registers logs to the registers category
func Registers(format string, args ...interface{}) {
	Get(CategoryRegisters).Info(format, args...)
}

// RegistersDebug logs debug to the registers category
func RegistersDebug(format string, args ...interface{}) {
	Get(CategoryRegisters).Debug(format, args...)
}

// RegistersError logs an error to the registers category
func RegistersError(format string, args ...interface{}) {
	Get(CategoryRegisters).Error(format, args...)
}

// Angels logs to the angels category
func Angels(format string, args ...interface{}) {
	Get(CategoryAngels).Info(format, args...)
}

// AngelsDebug logs debug to the angels category
func AngelsDebug(format string, args ...interface{}) {
	Get(CategoryAngels).Debug(format, args...)
}

// Evaluator logs to the evaluator category
func Evaluator(format string, args ...interface{}) {
	Get(CategoryEvaluator).Info(format, args...)
}

// EvaluatorDebug logs debug to the evaluator category
func EvaluatorDebug(format string, args ...interface{}) {
	Get(CategoryEvaluator).Debug(format, args...)
}

// Spawner logs to the spawner category
func Spawner(format string, args ...interface{}) {
	Get(CategorySpawner).Info(format, args...)
}

// SpawnerDebug logs debug to the spawner category
func SpawnerDebug(format string, args ...interface{}) {
	Get(CategorySpawner).Debug(format, args...)
}

// SpawnerWarn logs a warning to the spawner category
func SpawnerWarn(format string, args ...interface{}) {
	Get(CategorySpawner).Warn(format, args...)
}

// ParseDebug logs debug to the parse category
func ParseDebug(format string, args ...interface{}) {
	Get(CategoryParse).Debug(format, args...)
}

// ParseWarn logs a warning to the parse category
func ParseWarn(format string, args ...interface{}) {
	Get(CategoryParse).Warn(format, args...)
}

// CLI logs to the cli category
func CLI(format string, args ...interface{}) {
	Get(CategoryCLI).Info(format, args...)
}

// CLIDebug logs debug to the cli category
func CLIDebug(format string, args ...interface{}) {
	Get(CategoryCLI).Debug(format, args...)
}
