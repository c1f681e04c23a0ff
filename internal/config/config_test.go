package config

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "imgbb", cfg.ImageHost)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.HostingTimeout)
	assert.Equal(t, 32, cfg.TokenLength)
	assert.Equal(t, 7, cfg.TokenDefaultExpiry)
	assert.False(t, cfg.AirtableEnabled())
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("UPLOAD_RATE_LIMIT_MAX", "lots")
	t.Setenv("HOSTING_TIMEOUT", "soon")
	t.Setenv("ARCHIVE_SANITIZE_HTML", "maybe")

	cfg := Load()

	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, 30*time.Second, cfg.HostingTimeout)
	assert.False(t, cfg.ArchiveSanitizeHTML)
}

func TestSanitizedDropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:        "contentops",
		JWTSecret:      "secret",
		ImgBBAPIKey:    "key",
		AirtableAPIKey: "pat",
		S3SecretKey:    "s3",
	}

	safe := cfg.Sanitized()

	assert.Equal(t, "contentops", safe.AppName)
	assert.Empty(t, safe.JWTSecret)
	assert.Empty(t, safe.ImgBBAPIKey)
	assert.Empty(t, safe.AirtableAPIKey)
	assert.Empty(t, safe.S3SecretKey)
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10 ,not-an-ip,2001:db8::/32")

	cfg := Load()

	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.10/32"),
		netip.MustParsePrefix("2001:db8::/32"),
	}, cfg.TrustedProxies)
}

func TestLoadWithoutTrustedProxies(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_URL", "http://localhost:8090")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TRUSTED_PROXIES", "")

	assert.Empty(t, Load().TrustedProxies)
}
