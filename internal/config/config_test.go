package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHORTENER_PASSWORD", "SHORTENER_SITE_DOMAIN", "SHORTENER_PORT", "SHORTENER_DB_PATH",
		"SHORTENER_GEOIP_PATH", "SHORTENER_GEO_TIMEOUT", "SHORTENER_KEY_LENGTH", "SHORTENER_TAG_LIMIT",
		"SHORTENER_BUFFER_SIZE", "SHORTENER_WORKERS", "SHORTENER_CACHE_SIZE", "SHORTENER_CACHE_MAX_AGE",
		"SHORTENER_HASH_IPS", "SHORTENER_HASH_KEY", "SHORTENER_COUNT_BOTS", "SHORTENER_ENV", "SHORTENER_LOG_LEVEL",
		"SHORTENER_CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHORTENER_PASSWORD", "secret")
	t.Setenv("SHORTENER_SITE_DOMAIN", "sho.rt")
}

func TestLoad_MinimalValid(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DBPath != "./shortener.db" {
		t.Errorf("dbpath = %q, want %q", cfg.DBPath, "./shortener.db")
	}
	if cfg.KeyLength != 5 {
		t.Errorf("key length = %d, want 5", cfg.KeyLength)
	}
	if cfg.TagLimit != 8 {
		t.Errorf("tag limit = %d, want 8", cfg.TagLimit)
	}
	if cfg.GeoTimeout != 500*time.Millisecond {
		t.Errorf("geo timeout = %v, want 500ms", cfg.GeoTimeout)
	}
	if cfg.CacheMaxAge != 60*time.Second {
		t.Errorf("cache max age = %v, want 60s", cfg.CacheMaxAge)
	}
	if cfg.BufferSize != 50000 || cfg.Workers != 4 || cfg.CacheSize != 10000 {
		t.Errorf("buffer/workers/cache = %d/%d/%d", cfg.BufferSize, cfg.Workers, cfg.CacheSize)
	}
	if cfg.HashIPs {
		t.Error("hash ips should default to false")
	}
	if !cfg.CountBots {
		t.Error("count bots should default to true")
	}
	if cfg.Env != "production" || cfg.LogLevel != "info" {
		t.Errorf("env/log level = %q/%q", cfg.Env, cfg.LogLevel)
	}
	if cfg.CORSOrigins != nil {
		t.Errorf("cors origins = %v, want none", cfg.CORSOrigins)
	}
}

func TestLoad_AllFieldsOverridden(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHORTENER_PASSWORD", "s3cret")
	t.Setenv("SHORTENER_SITE_DOMAIN", " Sho.RT ")
	t.Setenv("SHORTENER_PORT", "9090")
	t.Setenv("SHORTENER_DB_PATH", "/tmp/test.db")
	t.Setenv("SHORTENER_GEOIP_PATH", "/data/geo.mmdb")
	t.Setenv("SHORTENER_GEO_TIMEOUT", "2s")
	t.Setenv("SHORTENER_KEY_LENGTH", "7")
	t.Setenv("SHORTENER_TAG_LIMIT", "3")
	t.Setenv("SHORTENER_BUFFER_SIZE", "500")
	t.Setenv("SHORTENER_WORKERS", "8")
	t.Setenv("SHORTENER_CACHE_SIZE", "200")
	t.Setenv("SHORTENER_CACHE_MAX_AGE", "5m")
	t.Setenv("SHORTENER_HASH_IPS", "true")
	t.Setenv("SHORTENER_HASH_KEY", "pepper")
	t.Setenv("SHORTENER_COUNT_BOTS", "0")
	t.Setenv("SHORTENER_ENV", "development")
	t.Setenv("SHORTENER_LOG_LEVEL", "debug")
	t.Setenv("SHORTENER_CORS_ORIGINS", "https://a.co, https://b.co,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" || cfg.DBPath != "/tmp/test.db" || cfg.Password != "s3cret" {
		t.Errorf("port/db/password = %q/%q/%q", cfg.Port, cfg.DBPath, cfg.Password)
	}
	if cfg.SiteDomain != "sho.rt" {
		t.Errorf("site domain = %q, want %q", cfg.SiteDomain, "sho.rt")
	}
	if cfg.GeoIPPath != "/data/geo.mmdb" || cfg.GeoTimeout != 2*time.Second {
		t.Errorf("geo = %q/%v", cfg.GeoIPPath, cfg.GeoTimeout)
	}
	if cfg.KeyLength != 7 || cfg.TagLimit != 3 {
		t.Errorf("key length/tag limit = %d/%d", cfg.KeyLength, cfg.TagLimit)
	}
	if cfg.BufferSize != 500 || cfg.Workers != 8 || cfg.CacheSize != 200 {
		t.Errorf("buffer/workers/cache = %d/%d/%d", cfg.BufferSize, cfg.Workers, cfg.CacheSize)
	}
	if cfg.CacheMaxAge != 5*time.Minute {
		t.Errorf("cache max age = %v, want 5m", cfg.CacheMaxAge)
	}
	if !cfg.HashIPs || cfg.HashKey != "pepper" {
		t.Errorf("hash ips/key = %v/%q", cfg.HashIPs, cfg.HashKey)
	}
	if cfg.CountBots {
		t.Error("count bots should be false")
	}
	if cfg.Env != "development" || cfg.LogLevel != "debug" {
		t.Errorf("env/log level = %q/%q", cfg.Env, cfg.LogLevel)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.co" || cfg.CORSOrigins[1] != "https://b.co" {
		t.Errorf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHORTENER_SITE_DOMAIN", "sho.rt")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing password")
	}
	if err.Error() != "SHORTENER_PASSWORD is required" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_MissingSiteDomain(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHORTENER_PASSWORD", "secret")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing site domain")
	}
	if err.Error() != "SHORTENER_SITE_DOMAIN is required" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"SHORTENER_BUFFER_SIZE", "0", "SHORTENER_BUFFER_SIZE must be positive"},
		{"SHORTENER_WORKERS", "-2", "SHORTENER_WORKERS must be positive"},
		{"SHORTENER_CACHE_SIZE", "0", "SHORTENER_CACHE_SIZE must be positive"},
		{"SHORTENER_KEY_LENGTH", "0", "SHORTENER_KEY_LENGTH must be positive"},
		{"SHORTENER_KEY_LENGTH", "81", "SHORTENER_KEY_LENGTH must be at most 80"},
		{"SHORTENER_TAG_LIMIT", "-1", "SHORTENER_TAG_LIMIT must be positive"},
		{"SHORTENER_GEO_TIMEOUT", "-1s", "SHORTENER_GEO_TIMEOUT must be positive"},
		{"SHORTENER_CACHE_MAX_AGE", "-1s", "SHORTENER_CACHE_MAX_AGE must not be negative"},
		{"SHORTENER_HASH_IPS", "true", "SHORTENER_HASH_KEY is required when SHORTENER_HASH_IPS is set"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_UnparseableFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("SHORTENER_GEO_TIMEOUT", "notaduration")
	t.Setenv("SHORTENER_KEY_LENGTH", "five")
	t.Setenv("SHORTENER_HASH_IPS", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeoTimeout != 500*time.Millisecond {
		t.Errorf("geo timeout = %v, want default", cfg.GeoTimeout)
	}
	if cfg.KeyLength != 5 {
		t.Errorf("key length = %d, want default", cfg.KeyLength)
	}
	if cfg.HashIPs {
		t.Error("hash ips should fall back to false")
	}
}

func TestIsSiteDomain(t *testing.T) {
	cfg := &Config{SiteDomain: "sho.rt"}
	for host, want := range map[string]bool{
		"sho.rt":      true,
		"SHO.RT":      true,
		"www.sho.rt":  true,
		"other.rt":    false,
		"sub.sho.rt":  false,
		"::1":         false,
	} {
		if got := cfg.IsSiteDomain(host); got != want {
			t.Errorf("IsSiteDomain(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsSiteDomain_IPv6(t *testing.T) {
	cfg := &Config{SiteDomain: "::1"}
	if !cfg.IsSiteDomain("::1") {
		t.Error("IsSiteDomain(\"::1\") = false, want true")
	}
}
