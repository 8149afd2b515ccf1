package config

import (
	"os"
	"time"
)

// parseEnv overlays cfg with values from environment variables. Duration
// variables use time.ParseDuration syntax (e.g. "10s"); invalid values are
// ignored in favor of the current setting.
func parseEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.DatabaseDSN, "DATABASE_DSN")
	setString(&cfg.LocalStatePath, "LOCAL_STATE_PATH")
	setString(&cfg.AdminPasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&cfg.SecretKey, "SECRET_KEY")
	setDuration(&cfg.SessionTTL, "SESSION_TTL")
	setDuration(&cfg.OnlineCheckInterval, "ONLINE_CHECK_INTERVAL")
	setDuration(&cfg.ProbeTimeout, "PROBE_TIMEOUT")
	setString(&cfg.S3RootUser, "S3_ROOT_USER")
	setString(&cfg.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&cfg.S3Bucket, "S3_BUCKET")
	setString(&cfg.S3Region, "S3_REGION")
	setString(&cfg.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setString(&cfg.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
