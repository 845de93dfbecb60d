package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/gendb/internal/config"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "untrusted proxy keeps remote",
			trusted: []string{"10.0.0.0/8"},
			remote:  "203.0.113.7:5000",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "203.0.113.7:5000",
		},
		{
			name:    "trusted proxy uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "first forwarded hop",
			trusted: []string{"10.1.2.3"},
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Forwarded-For": "5.6.7.8, 10.1.2.3"},
			want:    "5.6.7.8",
		},
		{
			name:    "spoofed value ignored",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Real-IP": "not-an-ip"},
			want:    "10.1.2.3:5000",
		},
		{
			name:    "no trusted proxies",
			remote:  "10.1.2.3:5000",
			headers: map[string]string{"X-Real-IP": "1.2.3.4"},
			want:    "10.1.2.3:5000",
		},
		{
			name:    "invalid entries skipped",
			trusted: []string{"garbage", " ::1 "},
			remote:  "[::1]:5000",
			headers: map[string]string{"X-Real-IP": "2001:db8::1"},
			want:    "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		headers map[string]string
		want    int
	}{
		{name: "disabled", cfg: config.SecurityConfig{}, want: http.StatusOK},
		{
			name: "missing key",
			cfg:  config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			want: http.StatusUnauthorized,
		},
		{
			name:    "wrong key",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			headers: map[string]string{"X-API-Key": "k2"},
			want:    http.StatusForbidden,
		},
		{
			name:    "header key",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}},
			headers: map[string]string{"X-API-Key": "k2"},
			want:    http.StatusOK,
		},
		{
			name:    "bearer token",
			cfg:     config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}},
			headers: map[string]string{"Authorization": "Bearer k1"},
			want:    http.StatusOK,
		},
		{
			name:    "no keys configured",
			cfg:     config.SecurityConfig{RequireAPIKey: true},
			headers: map[string]string{"X-API-Key": "anything"},
			want:    http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatusAndBytes(t *testing.T) {
	var captured *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot || captured.status != http.StatusTeapot {
		t.Errorf("status = %d/%d, want %d", rec.Code, captured.status, http.StatusTeapot)
	}
	if captured.bytes != 5 {
		t.Errorf("bytes = %d, want 5", captured.bytes)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	steps := []struct {
		key  string
		want bool
	}{
		{"10.0.0.1", true},
		{"10.0.0.1", true},
		{"10.0.0.1", false},
		{"10.0.0.2", true},
	}
	for i, s := range steps {
		ok, wait := rl.Allow(s.key)
		if ok != s.want {
			t.Errorf("step %d: Allow(%q) = %v, want %v", i, s.key, ok, s.want)
		}
		if !ok && (wait <= 0 || wait > 30*time.Second) {
			t.Errorf("step %d: wait = %v, want up to one refill interval", i, wait)
		}
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	rl := NewRateLimiter(1)
	defer rl.Stop()
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	serve := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := serve("192.0.2.1:5000"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := serve("192.0.2.1:6000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same host on another port status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
	if rec := serve("192.0.2.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("other host status = %d", rec.Code)
	}
}
