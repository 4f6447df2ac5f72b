package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerWithLevel(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "2xx success", status: http.StatusOK, body: "ok"},
		{name: "4xx client error", status: http.StatusBadRequest, body: "bad request"},
		{name: "5xx server error", status: http.StatusInternalServerError, body: "boom"},
	}

	mw := LoggerWithLevel(zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()
			mw(handler).ServeHTTP(w, req)

			// The wrapper must not alter what the handler wrote
			if w.Code != tt.status {
				t.Errorf("status = %v, want %v", w.Code, tt.status)
			}
			if got := w.Body.String(); got != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
		})
	}
}

func TestResponseWriterStatus(t *testing.T) {
	wrapped := wrapResponseWriter(httptest.NewRecorder())

	if wrapped.status != 0 {
		t.Errorf("status before any write = %v, want 0", wrapped.status)
	}

	wrapped.WriteHeader(http.StatusOK)
	if wrapped.status != http.StatusOK {
		t.Errorf("status = %v, want %v", wrapped.status, http.StatusOK)
	}

	// Only the first WriteHeader counts
	wrapped.WriteHeader(http.StatusBadRequest)
	if wrapped.status != http.StatusOK {
		t.Errorf("status after second WriteHeader = %v, want %v", wrapped.status, http.StatusOK)
	}
}

func TestResponseWriterHijack(t *testing.T) {
	// httptest.ResponseRecorder cannot be hijacked
	wrapped := wrapResponseWriter(httptest.NewRecorder())

	_, _, err := wrapped.Hijack()
	if err == nil {
		t.Error("expected Hijack to fail on a non-hijackable writer")
	}
}
