package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string

	// Upload tokens
	TokenLength        int
	TokenDefaultExpiry int // days

	// Public upload limits
	RateLimitMax    int
	RateLimitWindow time.Duration
	TempDir         string

	// Reverse proxies whose X-Forwarded-For is believed (IPs or CIDRs)
	TrustedProxies []netip.Prefix

	// Image hosting ("imgbb", "imgur" or "s3")
	ImageHost      string
	ImgBBAPIKey    string
	ImgurClientID  string
	HostingTimeout time.Duration

	// Archive processing
	ArchiveSanitizeHTML bool

	// External sync (all optional)
	AirtableAPIKey         string
	AirtableBaseID         string
	AirtableTable          string
	AirtableImageField     string
	AirtableInstagramField string
	AirtableContentField   string
	DiscordWebhookURL      string
	SyncTimeout            time.Duration

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	// Only required when ImageHost is "s3".
	S3Region              string
	S3Bucket              string
	S3AccessKey           string
	S3SecretKey           string
	S3Endpoint            string
	S3PresignExpiryPublic time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "contentops"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envRequired("APP_URL"), // Required: base URL for public upload links
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/contentops.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),

		// Upload tokens
		TokenLength:        envInt("UPLOAD_TOKEN_LENGTH", 32),
		TokenDefaultExpiry: envInt("UPLOAD_TOKEN_EXPIRY_DAYS", 7),

		// Public upload limits
		RateLimitMax:    envInt("UPLOAD_RATE_LIMIT_MAX", 10),
		RateLimitWindow: envDuration("UPLOAD_RATE_LIMIT_WINDOW", 15*time.Minute),
		TempDir:         envString("UPLOAD_TEMP_DIR", os.TempDir()),
		TrustedProxies:  envPrefixes("TRUSTED_PROXIES"),

		// Image hosting
		ImageHost:      envString("IMAGE_HOST", "imgbb"),
		ImgBBAPIKey:    envString("IMGBB_API_KEY", ""),
		ImgurClientID:  envString("IMGUR_CLIENT_ID", ""),
		HostingTimeout: envDuration("HOSTING_TIMEOUT", 30*time.Second),

		// Archive processing
		ArchiveSanitizeHTML: envBool("ARCHIVE_SANITIZE_HTML", false),

		// External sync
		AirtableAPIKey:         envString("AIRTABLE_API_KEY", ""),
		AirtableBaseID:         envString("AIRTABLE_BASE_ID", ""),
		AirtableTable:          envString("AIRTABLE_TABLE", "Articles"),
		AirtableImageField:     envString("AIRTABLE_IMAGE_FIELD", "Image"),
		AirtableInstagramField: envString("AIRTABLE_INSTAGRAM_FIELD", "Instagram Image"),
		AirtableContentField:   envString("AIRTABLE_CONTENT_FIELD", "Content"),
		DiscordWebhookURL:      envString("DISCORD_WEBHOOK_URL", ""),
		SyncTimeout:            envDuration("SYNC_TIMEOUT", 15*time.Second),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:              envString("S3_REGION", ""),
		S3Bucket:              envString("S3_BUCKET", ""),
		S3AccessKey:           envString("S3_ACCESS_KEY", ""),
		S3SecretKey:           envString("S3_SECRET_KEY", ""),
		S3Endpoint:            envString("S3_ENDPOINT", ""),                            // Optional: for non-AWS providers
		S3PresignExpiryPublic: envDuration("S3_PRESIGN_EXPIRY_PUBLIC", 168*time.Hour), // Default: 7 days
	}

	if cfg.ImageHost == "s3" {
		validateS3(cfg)
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures the configured image host has credentials.
// Development allows a missing key so the rest of the API can be exercised locally.
func validateProduction(cfg *Config) {
	switch cfg.ImageHost {
	case "imgbb":
		if cfg.ImgBBAPIKey == "" {
			slog.Error("production deployment requires IMGBB_API_KEY",
				"hint", "set IMAGE_HOST=imgur or IMAGE_HOST=s3 to use another host")
			os.Exit(1)
		}
	case "imgur":
		if cfg.ImgurClientID == "" {
			slog.Error("production deployment requires IMGUR_CLIENT_ID")
			os.Exit(1)
		}
	}
}

func validateS3(cfg *Config) {
	for key, value := range map[string]string{
		"S3_REGION":     cfg.S3Region,
		"S3_BUCKET":     cfg.S3Bucket,
		"S3_ACCESS_KEY": cfg.S3AccessKey,
		"S3_SECRET_KEY": cfg.S3SecretKey,
	} {
		if value == "" {
			slog.Error("config required env var missing", "key", key, "image_host", "s3")
			os.Exit(1)
		}
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envPrefixes parses a comma separated list of IPs and CIDRs. Invalid entries are skipped.
func envPrefixes(key string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "/") {
			prefix, err := netip.ParsePrefix(part)
			if err != nil {
				slog.Warn("config invalid proxy cidr, skipping", "key", key, "value", part)
				continue
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(part)
		if err != nil {
			slog.Warn("config invalid proxy ip, skipping", "key", key, "value", part)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AirtableEnabled reports whether enough Airtable settings exist to push updates.
func (c *Config) AirtableEnabled() bool {
	return c.AirtableAPIKey != "" && c.AirtableBaseID != "" && c.AirtableTable != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets, credentials, and sensitive data are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:         c.AppName,
		AppEnv:          c.AppEnv,
		AppURL:          c.AppURL,
		Port:            c.Port,
		ImageHost:       c.ImageHost,
		RateLimitMax:    c.RateLimitMax,
		RateLimitWindow: c.RateLimitWindow,
		TrustedProxies:  c.TrustedProxies,
	}
}
