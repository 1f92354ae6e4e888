package middleware

import (
	"net/http"
	"time"

	"device-fleet-api/internal/logger"

	"go.uber.org/zap"
)

// LoggingMiddleware writes one structured access log line per request
type LoggingMiddleware struct {
	logger *zap.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(log *zap.Logger) *LoggingMiddleware {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingMiddleware{logger: log}
}

// LogRequests logs method, path, status and latency. 5xx responses log at
// error level; rate limiting and timeouts log as warnings.
func (lm *LoggingMiddleware) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ClientIPFromContext(r.Context())
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", clientIP),
			zap.String("user_agent", r.UserAgent()),
		}

		log := logger.FromContext(r.Context(), lm.logger)
		switch {
		case wrapped.statusCode >= http.StatusInternalServerError:
			log.Error("HTTP request", fields...)
		case wrapped.statusCode == http.StatusTooManyRequests:
			log.Warn("Rate limit exceeded", fields...)
		case wrapped.statusCode == http.StatusRequestTimeout:
			log.Warn("Request timeout", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
