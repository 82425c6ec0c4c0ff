package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newRateLimitedRouter(rps float64, burst int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(rps, burst))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func get(router *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_AllowsNormalTraffic(t *testing.T) {
	router := newRateLimitedRouter(10, 5)

	for i := 0; i < 5; i++ {
		if code := get(router, "10.0.0.1:1000"); code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, code)
		}
	}
}

func TestRateLimit_RejectsExcessiveTraffic(t *testing.T) {
	router := newRateLimitedRouter(1, 2)

	for i := 0; i < 2; i++ {
		get(router, "10.0.0.1:1000")
	}

	if code := get(router, "10.0.0.1:1000"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	router := newRateLimitedRouter(1, 1)

	if code := get(router, "10.0.0.1:1000"); code != http.StatusOK {
		t.Errorf("client a first request: expected 200, got %d", code)
	}
	if code := get(router, "10.0.0.1:2000"); code != http.StatusTooManyRequests {
		t.Errorf("client a second request: expected 429, got %d", code)
	}
	if code := get(router, "10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("client b first request: expected 200, got %d", code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	router := newRateLimitedRouter(0, 0)

	for i := 0; i < 20; i++ {
		if code := get(router, "10.0.0.1:1000"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with limiting disabled, got %d", i, code)
		}
	}
}

func TestLimiterSet_EvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	set := newLimiterSet(1, 1, 10*time.Minute, clock)

	if !set.allow("10.0.0.1") {
		t.Fatal("expected first request from a to pass")
	}
	now = now.Add(5 * time.Minute)
	set.allow("10.0.0.2")

	now = now.Add(6 * time.Minute)
	set.allow("10.0.0.2")

	if _, ok := set.clients["10.0.0.1"]; ok {
		t.Error("expected idle client a to be evicted")
	}
	if len(set.clients) != 1 {
		t.Errorf("expected 1 tracked client, got %d", len(set.clients))
	}
}
