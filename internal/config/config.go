package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds the configuration values for the application.
type Config struct {
	ListenPort       string        `mapstructure:"LISTEN_PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	PostgresURI      string        `mapstructure:"POSTGRES_URI"`
	BucketURL        string        `mapstructure:"BUCKET_URL"`
	PublicBaseURL    string        `mapstructure:"PUBLIC_BASE_URL"`
	UploadCategory   string        `mapstructure:"UPLOAD_CATEGORY"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	APITimeout       time.Duration `mapstructure:"API_TIMEOUT"`
	CategoryCacheTTL time.Duration `mapstructure:"CATEGORY_CACHE_TTL"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"LISTEN_PORT", "ENV", "LOG_LEVEL", "POSTGRES_URI", "BUCKET_URL",
	"PUBLIC_BASE_URL", "UPLOAD_CATEGORY", "MAX_UPLOAD_BYTES", "API_BASE_URL",
	"API_TIMEOUT", "CATEGORY_CACHE_TTL", "CORS_ORIGINS",
}

// LoadConfig loads configuration from a .env file and environment variables,
// falling back to default values.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("LISTEN_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BUCKET_URL", "file:///tmp/caseintake?create_dir=true")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("UPLOAD_CATEGORY", "patients")
	v.SetDefault("MAX_UPLOAD_BYTES", 200<<20)
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("CATEGORY_CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// a missing .env file is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.CORSOrigins = nil
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg, nil
}

// Validate reports settings the gateway cannot run without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.BucketURL == "" {
		return errors.New("BUCKET_URL is required")
	}
	u, err := url.Parse(c.BucketURL)
	if err != nil {
		return errors.Wrap(err, "BUCKET_URL")
	}
	// file and mem buckets only sign URLs when the bucket URL configures a signer
	if c.PublicBaseURL == "" && (u.Scheme == "mem" || (u.Scheme == "file" && u.Query().Get("base_url") == "")) {
		return errors.Newf("PUBLIC_BASE_URL is required for %s:// buckets", u.Scheme)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	return nil
}

// ServesFiles reports whether the gateway itself serves stored files under
// /files, which is the case for local buckets.
func (c *Config) ServesFiles() bool {
	u, err := url.Parse(c.BucketURL)
	return err == nil && (u.Scheme == "file" || u.Scheme == "mem")
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}
