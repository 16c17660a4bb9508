package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryTransfer LogCategory = "transfer" // Transfer lifecycle events (JSON)
	CategorySearch   LogCategory = "search"   // Search requests (JSON)
	CategoryError    LogCategory = "error"    // Application errors (JSON)
)

// Categories returns every category MultiLogger writes
func Categories() []LogCategory {
	return []LogCategory{CategoryTransfer, CategorySearch, CategoryError}
}

// ValidCategory reports whether c is a known category
func ValidCategory(c LogCategory) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// MultiLogger provides categorized logging with separate output files.
// Each category writes JSON lines to <logs_dir>/<category>-YYYYMMDD.log.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	writers []*lumberjack.Logger
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level      string // debug, info, warn, error
	LogsDir    string // Directory for log files
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml.loggers[CategoryTransfer] = ml.createStructuredLogger(CategoryTransfer, level)
	ml.loggers[CategorySearch] = ml.createStructuredLogger(CategorySearch, level)
	// Application errors only
	ml.loggers[CategoryError] = ml.createStructuredLogger(CategoryError, zapcore.ErrorLevel)

	return ml, nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = "" // Don't include caller for cleaner logs

	writer := &lumberjack.Logger{
		Filename:   ml.getCategoryLogPath(category),
		MaxSize:    ml.config.MaxSizeMB,
		MaxBackups: ml.config.MaxBackups,
		MaxAge:     ml.config.MaxAgeDays,
		Compress:   ml.config.Compress,
	}
	ml.writers = append(ml.writers, writer)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level)
	return zap.New(core).With(zap.String("category", string(category)))
}

// getCategoryLogPath generates a log file path for a category with current date
func (ml *MultiLogger) getCategoryLogPath(category LogCategory) string {
	dateStr := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s-%s.log", category, dateStr)
	return filepath.Join(ml.config.LogsDir, filename)
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}

	// Return error logger as fallback
	return ml.loggers[CategoryError]
}

// Tee returns a logger writing to base and to the category file
func (ml *MultiLogger) Tee(base *zap.Logger, category LogCategory) *zap.Logger {
	return zap.New(zapcore.NewTee(base.Core(), ml.GetLogger(category).Core()), zap.AddCaller())
}

// Transfer returns the transfer logger (JSON format)
func (ml *MultiLogger) Transfer() *zap.Logger {
	return ml.GetLogger(CategoryTransfer)
}

// Search returns the search logger (JSON format)
func (ml *MultiLogger) Search() *zap.Logger {
	return ml.GetLogger(CategorySearch)
}

// Error returns the error logger (JSON format)
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// LogTransferEvent logs a transfer lifecycle event with structured data
func (ml *MultiLogger) LogTransferEvent(event string, fields ...zap.Field) {
	ml.Transfer().Info(event, fields...)
}

// LogSearchEvent logs a search request with structured data
func (ml *MultiLogger) LogSearchEvent(event string, fields ...zap.Field) {
	ml.Search().Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, w := range ml.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
