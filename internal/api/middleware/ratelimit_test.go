package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("192.0.2.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("192.0.2.1") {
		t.Error("request over the limit should be denied")
	}

	// Other clients are unaffected
	if !rl.Allow("192.0.2.2") {
		t.Error("a different IP should be allowed")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	if !rl.Allow("192.0.2.1") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("192.0.2.1") {
		t.Fatal("second request in window should be denied")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow("192.0.2.1") {
		t.Error("request after window reset should be allowed")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:4567",
			expected:   "203.0.113.7",
		},
		{
			name:       "direct connection ignores forwarded header",
			remoteAddr: "203.0.113.7:4567",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			expected:   "203.0.113.7",
		},
		{
			name:       "trusted proxy honors X-Real-IP",
			remoteAddr: "127.0.0.1:4567",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			expected:   "198.51.100.9",
		},
		{
			name:       "trusted proxy honors first forwarded hop",
			remoteAddr: "10.0.0.3:4567",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.3"},
			expected:   "198.51.100.9",
		},
		{
			name:       "trusted proxy without headers",
			remoteAddr: "127.0.0.1:4567",
			expected:   "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.expected {
				t.Errorf("ClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, time.Minute)
	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:4567"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}
