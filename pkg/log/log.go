package log

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/levenlabs/go-llog"
)

var (
	defaultLogLevel slog.LevelVar
	defaultLogger   = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     &defaultLogLevel,
	}))
)

func init() {
	defaultLogLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger from the context. If no logger is found, it returns the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context with the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithAttrs returns a new context whose logger carries the given attributes on
// every record.
func WithAttrs(ctx context.Context, attrs ...any) context.Context {
	return With(ctx, Ctx(ctx).With(attrs...))
}

func SetDefaultLogLevel(level slog.Level) {
	defaultLogLevel.Set(level)
}

// LevelFromLLog maps the level that lflag configured on llog to the slog
// equivalent.
func LevelFromLLog() (slog.Level, error) {
	switch llog.GetLevel() {
	case llog.DebugLevel:
		return slog.LevelDebug, nil
	case llog.InfoLevel:
		return slog.LevelInfo, nil
	case llog.WarnLevel:
		return slog.LevelWarn, nil
	case llog.ErrorLevel:
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", llog.GetLevel().String())
	}
}

// Middleware attaches a request scoped logger carrying the method and path to
// every request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithAttrs(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
