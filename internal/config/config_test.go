package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "https://api.example.com")
	for _, k := range []string{"ENV", "LISTEN_PORT", "BUCKET_URL", "PUBLIC_BASE_URL", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, "file:///tmp/caseintake?create_dir=true", cfg.BucketURL)
	assert.Equal(t, "http://localhost:8080/files", cfg.PublicBaseURL)
	assert.True(t, cfg.ServesFiles())
	assert.Equal(t, "patients", cfg.UploadCategory)
	assert.EqualValues(t, 200<<20, cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Minute, cfg.CategoryCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsDev())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_BASE_URL", "")
	t.Setenv("LISTEN_PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("API_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ListenPort)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "https://cdn.example.com", cfg.PublicBaseURL)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.EqualError(t, cfg.Validate(), "API_BASE_URL is required")
}

func TestValidateLocalBucketNeedsPublicURL(t *testing.T) {
	base := Config{APIBaseURL: "https://api.example.com", MaxUploadBytes: 1, APITimeout: time.Second}

	tests := []struct {
		bucket, public string
		ok             bool
	}{
		{"file:///tmp/caseintake?create_dir=true", "", false},
		{"mem://", "", false},
		{"file:///tmp/caseintake?base_url=https://files.example.com&secret_key_path=/etc/key", "", true},
		{"file:///tmp/caseintake", "http://localhost:8080/files", true},
		{"s3://intake-bucket?region=eu-west-1", "", true},
	}
	for _, tt := range tests {
		cfg := base
		cfg.BucketURL, cfg.PublicBaseURL = tt.bucket, tt.public
		err := cfg.Validate()
		if tt.ok {
			assert.NoError(t, err, tt.bucket)
		} else {
			assert.ErrorContains(t, err, "PUBLIC_BASE_URL is required", tt.bucket)
		}
	}

	cfg := base
	cfg.BucketURL = "s3://intake-bucket"
	assert.False(t, cfg.ServesFiles())
}
