package logger

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger *zap.SugaredLogger

func init() {
	// Usable before InitLogger so CLI paths and tests can log.
	l, _ := zap.NewDevelopment()
	defaultLogger = l.Sugar()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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

/**
 * Initialize the logging system
 * @param {string} level - Log level (debug/info/warn/error)
 * @param {string} path - Log file path, "console" or empty writes to stdout
 * @description
 * - Console output uses the human-readable encoder
 * - File output uses JSON and creates the parent directory when missing
 * - Falls back to stdout when the file cannot be opened
 */
func InitLogger(level, path string) {
	lvl := parseLevel(level)

	var core zapcore.Core
	if path == "" || path == "console" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			InitLogger(level, "console")
			Warnf("cannot create log directory for %s: %v, logging to stdout", path, err)
			return
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			InitLogger(level, "console")
			Warnf("cannot open log file %s: %v, logging to stdout", path, err)
			return
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), lvl)
	}

	defaultLogger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

func Debugf(format string, args ...interface{}) {
	defaultLogger.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	defaultLogger.Fatal(args...)
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	_ = defaultLogger.Sync()
}
