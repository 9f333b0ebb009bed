package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutConfig represents timeout middleware configuration
type TimeoutConfig struct {
	Duration time.Duration
}

// DefaultTimeoutConfig returns default timeout configuration
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Duration: 30 * time.Second,
	}
}

// timeoutWriter buffers the handler's response so the middleware can
// decide who wins: a handler that finishes in time gets its buffer
// flushed, a handler that finishes late writes into a dead buffer while
// the client already got the 504.
type timeoutWriter struct {
	gin.ResponseWriter

	mu       sync.Mutex
	buf      bytes.Buffer
	status   int
	timedOut bool
}

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	w.status = code
}

func (w *timeoutWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(b), nil
	}
	return w.buf.Write(b)
}

func (w *timeoutWriter) WriteString(s string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return len(s), nil
	}
	return w.buf.WriteString(s)
}

// flush copies the buffered response to the real writer. No-op when the
// timeout already responded.
func (w *timeoutWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return
	}
	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}
	if w.buf.Len() > 0 {
		w.ResponseWriter.Write(w.buf.Bytes()) //nolint:errcheck
	}
}

// expire writes the 504 to the real writer and marks the buffer dead so
// whatever the handler writes afterwards is dropped.
func (w *timeoutWriter) expire(traceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timedOut = true

	body, _ := json.Marshal(ErrorResponse{
		Code:    http.StatusGatewayTimeout,
		Message: "request timeout",
		TraceID: traceID,
	})
	w.ResponseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.ResponseWriter.WriteHeader(http.StatusGatewayTimeout)
	w.ResponseWriter.Write(body) //nolint:errcheck
}

// Timeout adds request timeout
func Timeout(config TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.Duration)
		defer cancel()

		tw := &timeoutWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Next()
		}()

		select {
		case <-done:
			tw.flush()
		case <-ctx.Done():
			c.Abort()
			tw.expire(c.GetString("request_id"))
		}
	}
}
