package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()
	handler := RateLimit(0)(okHandler())
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i+1, rr.Code)
		}
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	t.Parallel()
	// rps=1, burst=1: second request from same IP should be blocked.
	handler := RateLimit(1)(okHandler())

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("5.6.7.8:1234"); code != http.StatusOK {
		t.Errorf("first request: status = %d, want 200", code)
	}
	// Same host, different port.
	if code := send("5.6.7.8:4321"); code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", code)
	}
	if code := send("9.9.9.9:1234"); code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", code)
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"1.2.3.4:5678": "1.2.3.4",
		"[::1]:8080":   "::1",
		"10.0.0.1":     "10.0.0.1",
	}
	for addr, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if got := clientIP(req); got != want {
			t.Errorf("clientIP(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestVisitors_SweepsIdleHosts(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	v := newVisitors(1)
	v.now = func() time.Time { return clock }

	if !v.take("1.1.1.1") {
		t.Fatal("first request from 1.1.1.1 rejected")
	}
	clock = clock.Add(visitorIdle / 2)
	if !v.take("2.2.2.2") {
		t.Fatal("first request from 2.2.2.2 rejected")
	}

	clock = clock.Add(visitorIdle/2 + time.Second)
	v.take("2.2.2.2")

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.byHost["1.1.1.1"]; ok {
		t.Error("idle host 1.1.1.1 was not swept")
	}
	if _, ok := v.byHost["2.2.2.2"]; !ok {
		t.Error("active host 2.2.2.2 was swept")
	}
}
