package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the project-wide logging interface. The concrete slogLogger
// embeds *slog.Logger so every slog method is available on it.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	DebugContext(ctx context.Context, msg string, args ...any)
	// With returns a new Logger with the given key-value pairs bound as attributes.
	With(args ...any) Logger
	// ToSlog returns the underlying *slog.Logger for third-party libraries.
	ToSlog() *slog.Logger
}

// New returns a Logger writing JSON to stdout at the given level.
func New(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter returns a JSON Logger writing to w. trace_id, span_id and
// request_id are injected from context automatically.
func NewWithWriter(w io.Writer, level string) Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	sl := slog.New(&contextHandler{slog.NewJSONHandler(w, opts)})
	return &slogLogger{Logger: sl}
}

// Nop discards everything. Handy in tests.
func Nop() Logger {
	return NewWithWriter(io.Discard, "error")
}

type slogLogger struct {
	*slog.Logger
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{Logger: l.Logger.With(args...)}
}

func (l *slogLogger) ToSlog() *slog.Logger {
	return l.Logger
}

// contextHandler wraps a slog.Handler and injects the OTel span and the
// request id from context into every record.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := RequestIDFrom(ctx); requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{h.Handler.WithGroup(name)}
}

type requestIDKey struct{}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id stored on ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(New("info"))
}

// SetDefault replaces the package-level logger.
func SetDefault(l Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l.ToSlog())
}

// Default returns the package-level logger.
func Default() Logger {
	return defaultLogger.Load().(Logger)
}
