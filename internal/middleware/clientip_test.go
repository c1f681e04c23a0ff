package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

func resolvedIP(t *testing.T, trusted []netip.Prefix, req *http.Request) string {
	t.Helper()
	var ip string
	WithClientIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = ClientIP(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	return ip
}

func TestWithClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		trusted []netip.Prefix
		want    string
	}{
		{"no headers", "192.0.2.1:4000", "", "", testProxies, "192.0.2.1"},
		{"untrusted peer ignores xff", "198.51.100.7:4000", "203.0.113.9", "", testProxies, "198.51.100.7"},
		{"untrusted peer ignores real ip", "198.51.100.7:4000", "", "203.0.113.9", testProxies, "198.51.100.7"},
		{"no trusted proxies configured", "10.0.0.2:4000", "203.0.113.9", "", nil, "10.0.0.2"},
		{"trusted peer uses xff", "10.0.0.2:4000", "203.0.113.9", "", testProxies, "203.0.113.9"},
		{"rightmost untrusted hop wins", "10.0.0.2:4000", "1.2.3.4, 203.0.113.9, 10.0.0.5", "", testProxies, "203.0.113.9"},
		{"all hops trusted", "10.0.0.2:4000", "10.0.0.9, 10.0.0.5", "", testProxies, "10.0.0.9"},
		{"garbage hop stops the walk", "10.0.0.2:4000", "203.0.113.9, junk, 10.0.0.5", "", testProxies, "10.0.0.5"},
		{"trusted peer uses real ip", "10.0.0.2:4000", "", " 203.0.113.9 ", testProxies, "203.0.113.9"},
		{"ipv6 peer", "[2001:db8::1]:443", "203.0.113.9", "", testProxies, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, resolvedIP(t, tt.trusted, req))
		})
	}
}

func TestClientIPWithoutMiddlewareUsesPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "198.51.100.7", ClientIP(req))
}

func TestRateLimitIgnoresRotatingForwardedFor(t *testing.T) {
	rl := newRateLimiter(10, 15*time.Minute, time.Now)
	h := WithClientIP(testProxies)(RateLimit(rl)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 11)
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/public-upload/image", nil)
		req.RemoteAddr = "198.51.100.7:5123"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	for i, code := range codes[:10] {
		assert.Equal(t, http.StatusOK, code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, codes[10])
}

func TestRateLimitKeysOnForwardedClientBehindProxy(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, time.Now)
	h := WithClientIP(testProxies)(RateLimit(rl)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/public-upload/image", nil)
		req.RemoteAddr = "10.0.0.2:5123"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, client)
	}
}
