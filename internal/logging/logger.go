// Package logging wraps zap with OpenTelemetry trace correlation so every
// log line emitted while handling a request can be joined to its span.
package logging

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger pairs a zap.Logger with an OTel tracer so log calls can attach
// trace_id/span_id fields and mark spans as errored.
type Logger struct {
	z      *zap.Logger
	tracer trace.Tracer
}

// New builds a JSON-structured logger at the given level ("debug", "info",
// "warn", "error"), named for the given service.
func New(service, level string) (*Logger, error) {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}

	return &Logger{z: z, tracer: otel.Tracer(service)}, nil
}

// NewNop returns a Logger that discards everything, useful in tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop(), tracer: otel.Tracer("nop")}
}

func (l *Logger) withTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		fields = append(fields,
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return fields
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Debug(msg, l.withTrace(ctx, fields)...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Info(msg, l.withTrace(ctx, fields)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.z.Warn(msg, l.withTrace(ctx, fields)...)
}

// Error logs at error level, records err on the active span, and marks the
// span status as errored.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}
	}
	l.z.Error(msg, l.withTrace(ctx, fields)...)
}

// Fatal logs at fatal level then terminates the process.
func (l *Logger) Fatal(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.z.Fatal(msg, l.withTrace(ctx, fields)...)
}

// WithFields returns a derived Logger with the given fields attached to
// every subsequent entry.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...), tracer: l.tracer}
}

// Sync flushes buffered log entries; call before process exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// StartSpan begins a new span named operationName, tied to this logger's
// tracer.
func (l *Logger) StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, operationName, trace.WithAttributes(attrs...))
}

// HTTPRequestLogger returns middleware logging method, path, status, and
// duration for every request, with trace correlation.
func (l *Logger) HTTPRequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, span := l.StartSpan(r.Context(), r.Method+" "+r.URL.Path,
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.remote_addr", r.RemoteAddr),
			)
			defer span.End()

			wrapper := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r.WithContext(ctx))

			duration := time.Since(start)
			l.Info(ctx, "http request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapper.statusCode),
				zap.Duration("duration", duration),
			)

			span.SetAttributes(attribute.Int("http.status_code", wrapper.statusCode))
			if wrapper.statusCode >= 400 {
				span.SetStatus(codes.Error, http.StatusText(wrapper.statusCode))
			}
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code for
// the access-log middleware.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
