package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterWindow(t *testing.T) {
	current := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return current }

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatalf("requests within the limit must be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Fatalf("third request within the window must be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Fatalf("limits are per client, other clients must pass")
	}

	current = current.Add(time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Fatalf("request after the window passed must be allowed again")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	current := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	rl := newRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return current }

	rl.allow("10.0.0.1")
	current = current.Add(2 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.clients) != 0 {
		t.Fatalf("idle clients must be swept, %d left", len(rl.clients))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get(); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := get(); code != http.StatusTooManyRequests {
		t.Fatalf("second request should be throttled, got %d", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(0, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("disabled limiter must pass everything, got %d on request %d", w.Code, i)
		}
	}
}
