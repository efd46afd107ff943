package middleware

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/utils"
	"github.com/gorilla/handlers"
)

// Middleware wraps a whole handler, including requests no route matches.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so the first one listed is the outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func Logger(logger *utils.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
			logger.Info("HTTP request",
				"method", p.Request.Method,
				"path", p.URL.Path,
				"status", p.StatusCode,
				"size", p.Size,
				"duration_ms", time.Since(p.TimeStamp).Milliseconds())
		})
	}
}

func CORS() Middleware {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}

// recoveryLogger routes panics reported by handlers.RecoveryHandler to slog.
type recoveryLogger struct {
	logger *utils.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Panic recovered", "panic", fmt.Sprint(v...))
}

func Recovery(logger *utils.Logger) Middleware {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(true),
	)
}
