package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/nkiryanov/ledgerbank/internal/money"
)

// Card numbers may appear in admin paths
var cardInPath = regexp.MustCompile(`\d{13,19}`)

type logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type logWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *logWriter) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *logWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// Access log, server errors (5xx) are logged at error level
func Logger(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &logWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lw, r)

			args := []any{
				"method", r.Method,
				"uri", maskCards(r.RequestURI),
				"duration", time.Since(start),
				"status", lw.status,
				"size", lw.size,
			}
			if lw.status >= http.StatusInternalServerError {
				l.Error("HTTP request failed", args...)
				return
			}
			l.Info("got HTTP request", args...)
		})
	}
}

func maskCards(uri string) string {
	return cardInPath.ReplaceAllStringFunc(uri, money.MaskCardNumber)
}
