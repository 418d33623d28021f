// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

type contextKeyRequestID struct{}
type contextKeyEmail struct{}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID{}).(string)
	return id
}

// GetEmail retrieves the authenticated email from the context.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(contextKeyEmail{}).(string)
	return email
}

// RequestID tags every request with an id, honoring one set upstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), contextKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Recovery turns panics into 500 responses instead of dropped connections.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						"panic", rec,
						"path", r.URL.Path,
						"request_id", GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Logger emits one access log line per request.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}

// TokenReader validates an authentication token and returns the email it
// was issued to.
type TokenReader interface {
	Read(token string) (string, error)
}

// RequireAuth validates the API-Key header (Authorization Bearer accepted
// too) and stores the caller's email in the context.
func RequireAuth(reader TokenReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				const prefix = "Bearer "
				if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
					token = auth[len(prefix):]
				}
			}
			if token == "" {
				writeUnauthorized(w, "token absent")
				return
			}
			email, err := reader.Read(token)
			if err != nil {
				logger.Warn("invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeUnauthorized(w, "token invalide")
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyEmail{}, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
