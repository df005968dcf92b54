package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBPath      string
	Password    string
	SiteDomain  string
	GeoIPPath   string
	GeoTimeout  time.Duration
	KeyLength   int
	TagLimit    int
	BufferSize  int
	Workers     int
	CacheSize   int
	CacheMaxAge time.Duration
	HashIPs     bool
	HashKey     string
	CountBots   bool
	Env         string
	LogLevel    string
	CORSOrigins []string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first without overriding variables that are
// already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	password := os.Getenv("SHORTENER_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("SHORTENER_PASSWORD is required")
	}

	siteDomain := strings.ToLower(strings.TrimSpace(os.Getenv("SHORTENER_SITE_DOMAIN")))
	if siteDomain == "" {
		return nil, fmt.Errorf("SHORTENER_SITE_DOMAIN is required")
	}

	cfg := &Config{
		Port:        envOrDefault("SHORTENER_PORT", "8080"),
		DBPath:      envOrDefault("SHORTENER_DB_PATH", "./shortener.db"),
		Password:    password,
		SiteDomain:  siteDomain,
		GeoIPPath:   os.Getenv("SHORTENER_GEOIP_PATH"),
		GeoTimeout:  parseDuration("SHORTENER_GEO_TIMEOUT", 500*time.Millisecond),
		KeyLength:   parseInt("SHORTENER_KEY_LENGTH", 5),
		TagLimit:    parseInt("SHORTENER_TAG_LIMIT", 8),
		BufferSize:  parseInt("SHORTENER_BUFFER_SIZE", 50000),
		Workers:     parseInt("SHORTENER_WORKERS", 4),
		CacheSize:   parseInt("SHORTENER_CACHE_SIZE", 10000),
		CacheMaxAge: parseDuration("SHORTENER_CACHE_MAX_AGE", 60*time.Second),
		HashIPs:     parseBool("SHORTENER_HASH_IPS", false),
		HashKey:     os.Getenv("SHORTENER_HASH_KEY"),
		CountBots:   parseBool("SHORTENER_COUNT_BOTS", true),
		Env:         envOrDefault("SHORTENER_ENV", "production"),
		LogLevel:    envOrDefault("SHORTENER_LOG_LEVEL", "info"),
		CORSOrigins: parseList("SHORTENER_CORS_ORIGINS"),
	}

	if cfg.GeoTimeout <= 0 {
		return nil, fmt.Errorf("SHORTENER_GEO_TIMEOUT must be positive")
	}
	if cfg.KeyLength <= 0 {
		return nil, fmt.Errorf("SHORTENER_KEY_LENGTH must be positive")
	}
	if cfg.KeyLength > 80 {
		return nil, fmt.Errorf("SHORTENER_KEY_LENGTH must be at most 80")
	}
	if cfg.TagLimit <= 0 {
		return nil, fmt.Errorf("SHORTENER_TAG_LIMIT must be positive")
	}
	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("SHORTENER_BUFFER_SIZE must be positive")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("SHORTENER_WORKERS must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("SHORTENER_CACHE_SIZE must be positive")
	}
	if cfg.CacheMaxAge < 0 {
		return nil, fmt.Errorf("SHORTENER_CACHE_MAX_AGE must not be negative")
	}
	if cfg.HashIPs && cfg.HashKey == "" {
		return nil, fmt.Errorf("SHORTENER_HASH_KEY is required when SHORTENER_HASH_IPS is set")
	}

	return cfg, nil
}

// IsSiteDomain reports whether hostname, as returned by url.URL.Hostname,
// is the service's own domain.
func (c *Config) IsSiteDomain(hostname string) bool {
	host := strings.TrimPrefix(strings.ToLower(hostname), "www.")
	return host == strings.TrimPrefix(c.SiteDomain, "www.")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
