package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Manifest sources
const (
	SourceHTTP     = "http"
	SourceFixtures = "fixtures"
	SourceDir      = "dir"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	PlatformSuffix   string        // appended to bare domains (ex: "openremote.app")
	DefaultApp       string        // app used when a manifest lists none
	ManifestSource   string        // "http" | "fixtures" | "dir"
	ManifestDir      string        // directory of <label>.json files when source is "dir"
	ManifestPath     string        // path of the console config below the base URL
	FetchTimeout     time.Duration // per-lookup timeout
	ManifestCacheTTL time.Duration // 0 disables the manifest cache
	SessionTTL       time.Duration // idle sessions are dropped after this
	GCInterval       time.Duration // interval of the in-memory session sweep

	// Redis (optional, empty address => in-memory sessions)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict health endpoints to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	CORSOrigins     []string // allowed origins for browser callers
	RateLimitBurst  int      // session creations allowed in a burst per client
	RateLimitPerMin int      // sustained session creations per minute per client
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ONBOARD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ONBOARD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ONBOARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ONBOARD_PRETTY_LOG", true),

		// Onboarding
		PlatformSuffix:   getenv("ONBOARD_PLATFORM_SUFFIX", "openremote.app"),
		DefaultApp:       getenv("ONBOARD_DEFAULT_APP", "manager"),
		ManifestSource:   strings.ToLower(getenv("ONBOARD_MANIFEST_SOURCE", SourceHTTP)),
		ManifestDir:      getenv("ONBOARD_MANIFEST_DIR", ""),
		ManifestPath:     getenv("ONBOARD_MANIFEST_PATH", "/api/master/apps/consoleConfig"),
		FetchTimeout:     mustDuration("ONBOARD_FETCH_TIMEOUT", 10*time.Second),
		ManifestCacheTTL: mustDuration("ONBOARD_MANIFEST_CACHE_TTL", 5*time.Minute),
		SessionTTL:       mustDuration("ONBOARD_SESSION_TTL", 30*time.Minute),
		GCInterval:       mustDuration("ONBOARD_GC_INTERVAL", time.Minute),

		// Redis settings
		RedisAddr:             getenv("ONBOARD_REDIS_ADDR", ""),
		RedisUser:             getenv("ONBOARD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ONBOARD_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("ONBOARD_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ONBOARD_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("ONBOARD_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("ONBOARD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("ONBOARD_TRUST_PROXY", false),

		CORSOrigins:     splitAndTrim(getenv("ONBOARD_CORS_ORIGINS", "*")),
		RateLimitBurst:  getenvInt("ONBOARD_RATE_LIMIT_BURST", 20),
		RateLimitPerMin: getenvInt("ONBOARD_RATE_LIMIT_PER_MIN", 60),
	}

	cfg.mustValidate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// UseRedis reports whether sessions and manifests go to Redis.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) mustValidate() {
	switch c.ManifestSource {
	case SourceHTTP, SourceFixtures:
	case SourceDir:
		if c.ManifestDir == "" {
			panic("❌ FATAL: ONBOARD_MANIFEST_DIR is required when ONBOARD_MANIFEST_SOURCE=dir")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid ONBOARD_MANIFEST_SOURCE %q (want http, fixtures or dir)", c.ManifestSource))
	}

	if strings.TrimSpace(c.DefaultApp) == "" {
		panic("❌ FATAL: ONBOARD_DEFAULT_APP must not be blank")
	}
	if c.SessionTTL <= 0 {
		panic("❌ FATAL: ONBOARD_SESSION_TTL must be positive")
	}
	if c.RateLimitBurst <= 0 || c.RateLimitPerMin <= 0 {
		panic("❌ FATAL: ONBOARD_RATE_LIMIT_BURST and ONBOARD_RATE_LIMIT_PER_MIN must be positive")
	}

	// Validate Redis password configuration
	if c.UseRedis() && c.RedisPasswordRequired && c.RedisPassword == "" {
		panic("❌ FATAL: ONBOARD_REDIS_PASSWORD is required when ONBOARD_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
