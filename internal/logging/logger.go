package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error".
const LogLevelEnvVar = "ONEBIOT_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks ONEBIOT_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// ParseLevel maps a level name to a zap level.
// Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Stage tags used for bootstrap log lines.
const (
	StageStorage   = "FIS"
	StageSettings  = "CNF"
	StageWiFi      = "WFC"
	StageAP        = "WAP"
	StageDiscovery = "DNS"
	StageAPI       = "API"
	StageTime      = "NTP"
	StageDevice    = "OBI"
)

// LogStage logs a bootstrap stage event. Failures are logged at warn level.
func LogStage(stage string, event string, failed bool, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("stage", stage),
		zap.String("event", event),
	}, fields...)

	if failed {
		Warn("Bootstrap stage failed", fields...)
		return
	}
	Info("Bootstrap stage", fields...)
}

// LogHTTPRequest logs an HTTP request.
func LogHTTPRequest(requestID, remoteAddr, method, path string) {
	Debug("HTTP request received",
		zap.String("request_id", requestID),
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
	)
}

// LogHTTPResponse logs an HTTP response.
func LogHTTPResponse(requestID, remoteAddr string, statusCode int, success bool) {
	Info("HTTP response sent",
		zap.String("request_id", requestID),
		zap.String("remote_addr", remoteAddr),
		zap.Int("status_code", statusCode),
		zap.Bool("success", success),
	)
}

// Sync flushes any buffered log entries.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
