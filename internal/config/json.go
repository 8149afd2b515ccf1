package config

import (
	"encoding/json"
	"os"

	"github.com/betterbench/betterbench/internal/flagx"
	"github.com/betterbench/betterbench/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "10s"
// or as integer nanoseconds. After parsing, non-zero values are copied into
// the runtime Config.
type JsonConfig struct {
	HTTPAddr            string         `json:"http_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	LocalStatePath      string         `json:"local_state_path"`
	AdminPasswordHash   string         `json:"admin_password_hash"`
	SecretKey           string         `json:"secret_key"`
	SessionTTL          timex.Duration `json:"session_ttl"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	ProbeTimeout        timex.Duration `json:"probe_timeout"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3PublicBaseURL     string         `json:"s3_public_base_url"`
}

// parseJson overlays cfg with values loaded from a JSON file. The file path
// is taken from the -c/-config flags; when absent, nothing is loaded.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	jc := &JsonConfig{}
	if err := json.Unmarshal(data, jc); err != nil {
		panic(err)
	}

	if jc.HTTPAddr != "" {
		cfg.HTTPAddr = jc.HTTPAddr
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.LocalStatePath != "" {
		cfg.LocalStatePath = jc.LocalStatePath
	}
	if jc.AdminPasswordHash != "" {
		cfg.AdminPasswordHash = jc.AdminPasswordHash
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.SessionTTL != 0 {
		cfg.SessionTTL = jc.SessionTTL.Std()
	}
	if jc.OnlineCheckInterval != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Std()
	}
	if jc.ProbeTimeout != 0 {
		cfg.ProbeTimeout = jc.ProbeTimeout.Std()
	}
	if jc.S3RootUser != "" {
		cfg.S3RootUser = jc.S3RootUser
	}
	if jc.S3RootPassword != "" {
		cfg.S3RootPassword = jc.S3RootPassword
	}
	if jc.S3Bucket != "" {
		cfg.S3Bucket = jc.S3Bucket
	}
	if jc.S3Region != "" {
		cfg.S3Region = jc.S3Region
	}
	if jc.S3BaseEndpoint != "" {
		cfg.S3BaseEndpoint = jc.S3BaseEndpoint
	}
	if jc.S3PublicBaseURL != "" {
		cfg.S3PublicBaseURL = jc.S3PublicBaseURL
	}
}
