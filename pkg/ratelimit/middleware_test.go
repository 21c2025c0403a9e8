package ratelimit

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

func TestMiddleware_PerIPLimit(t *testing.T) {
	config := &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   2,
		PerIPRefillRate: 0.1,
		BucketTTL:       time.Minute,
	}
	handler := NewMiddleware(config).Handler(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/sign-up", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/sign-up", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429")
	}

	// A different IP has its own bucket
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/sign-up", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for fresh IP, got %d", rec.Code)
	}
}

func TestMiddleware_EndpointLimit(t *testing.T) {
	config := &Config{
		EndpointLimits: map[string]EndpointLimit{
			"POST /send-password-reset-email": {Capacity: 1, RefillRate: 0.01},
		},
		BucketTTL: time.Minute,
	}
	handler := NewMiddleware(config).Handler(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/send-password-reset-email", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/send-password-reset-email", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 on endpoint limit, got %d", rec.Code)
	}

	// Other endpoints are unaffected
	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/sign-up", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for unlimited endpoint, got %d", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("expected 10.0.0.1, got %s", ip)
	}

	req.Header.Set("X-Real-IP", "203.0.113.7")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("expected X-Real-IP to win, got %s", ip)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	if ip := getClientIP(req); ip != "198.51.100.4" {
		t.Errorf("expected first X-Forwarded-For entry, got %s", ip)
	}
}
