package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger
var testMode bool

// Options configures the process logger
type Options struct {
	Level   string // debug, info, warn, error; defaults to debug
	Path    string // rotated JSON log file
	Console bool   // also write to stdout
}

type requestIDKey struct{}

// SetTestMode sets the logger to test mode, which prevents os.Exit calls
func SetTestMode(enabled bool) {
	testMode = enabled
}

// Init initializes the logger with the given configuration
func Init(opts Options) error {
	// Ensure the directory exists with secure permissions
	dir := filepath.Dir(opts.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		return err
	}

	// Configure log rotation
	writer := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28,   // days
		Compress:   true, // compress the backups
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), level))
	}

	log = zap.New(zapcore.NewTee(cores...))

	// Replace the global logger
	zap.ReplaceGlobals(log)

	return nil
}

func parseLevel(level string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(level) == "" {
		return zap.NewAtomicLevelAt(zap.DebugLevel), nil
	}
	return zap.ParseAtomicLevel(strings.ToLower(level))
}

// L returns the process logger, or a no-op logger before Init
func L() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// ContextWithRequestID stores the request id for loggers derived with Ctx
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom returns the request id stored in ctx, if any
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Ctx returns the process logger annotated with the request id carried by ctx
func Ctx(ctx context.Context) *zap.Logger {
	l := L()
	if id := RequestIDFrom(ctx); id != "" {
		return l.With(zap.String("request_id", id))
	}
	return l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	if log != nil {
		log.Info(msg, fields...)
	}
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, fields...)
	}
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	if log != nil {
		log.Debug(msg, fields...)
	}
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	if log != nil {
		log.Warn(msg, fields...)
	}
}

// Fatal logs a fatal message and then calls os.Exit(1)
func Fatal(msg string, fields ...zap.Field) {
	if log != nil {
		if testMode {
			log.Error(msg, fields...)
		} else {
			log.Fatal(msg, fields...)
		}
	}
}

// Sync flushes any buffered log entries
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}
