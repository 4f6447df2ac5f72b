package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrorWriter renders a recovered panic to the client
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err interface{})

// Recovery returns a middleware that converts panics into 500 responses
func Recovery(logger *zap.Logger) func(next http.Handler) http.Handler {
	return RecoveryWithWriter(logger, defaultErrorWriter)
}

// RecoveryWithWriter is Recovery with a custom error renderer
func RecoveryWithWriter(logger *zap.Logger, writer ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)
					writer(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

func defaultErrorWriter(w http.ResponseWriter, r *http.Request, err interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"internal server error"}`))
}
