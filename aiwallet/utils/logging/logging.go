package logging

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

// TraceIDKey carries the chi request id into timer lines.
const TraceIDKey ctxKey = "trace_id"

// Loggers start as no-ops so packages can be used before InitLogger (tests, CLI).
var (
	AppLogger     = zap.NewNop()
	RequestLogger = zap.NewNop()
	TimerLogger   = zap.NewNop()
	ErrorLogger   = zap.NewNop()
)

var logsDir = "./logs"

// ensureLogsDir makes sure the logs folder exists
func ensureLogsDir() {
	if err := os.MkdirAll(logsDir, os.ModePerm); err != nil {
		panic("Failed to create logs directory: " + err.Error())
	}
}

func rotating(name string, maxSize, maxAge int) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename: filepath.Join(logsDir, name), MaxSize: maxSize, MaxAge: maxAge, Compress: true,
	})
}

func InitLogger() {
	ensureLogsDir()
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	// app.log (general logs), mirrored to stderr
	appCore := zapcore.NewTee(
		zapcore.NewCore(encoder, rotating("app.log", 100, 28), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), zap.WarnLevel),
	)
	AppLogger = zap.New(appCore)

	RequestLogger = zap.New(zapcore.NewCore(encoder, rotating("request.log", 50, 7), zap.InfoLevel))
	TimerLogger = zap.New(zapcore.NewCore(encoder, rotating("timer.log", 50, 7), zap.InfoLevel))
	ErrorLogger = zap.New(zapcore.NewCore(encoder, rotating("error.log", 100, 30), zap.ErrorLevel))
}

// Sync flushes every logger. Call on shutdown.
func Sync() {
	for _, l := range []*zap.Logger{AppLogger, RequestLogger, TimerLogger, ErrorLogger} {
		_ = l.Sync()
	}
}

// LogDuration lets you do: defer logging.LogDuration(ctx, "FuncName")()
func LogDuration(ctx context.Context, name string) func() {
	start := time.Now()
	traceID, _ := ctx.Value(TraceIDKey).(string)

	return func() {
		fields := []zap.Field{
			zap.String("func", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		}
		if traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		// write ONLY to timer.log
		TimerLogger.Info("Function timed", fields...)
	}
}
