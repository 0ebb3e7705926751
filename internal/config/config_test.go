package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	require.NotNil(t, cfg)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
db_driver: json
db_dsn: data/filedrop.json
storage:
  backend: s3
  s3_bucket: uploads
log:
  format: json
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, DriverJSON, cfg.DBDriver)
	assert.Equal(t, "uploads", cfg.Storage.S3Bucket)
	assert.Equal(t, "json", cfg.Log.Format)
	// untouched keys keep their defaults
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("MAX_UPLOAD_MB", "25")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "root", cfg.Admin.Username)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, int64(25)<<20, cfg.MaxUploadBytes())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "lots")
	assert.Error(t, Default().ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.DBDriver = "mongo" }},
		{"empty dsn", func(c *Config) { c.DBDSN = "" }},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = StorageS3 }},
		{"local without dir", func(c *Config) { c.Storage.UploadDir = "" }},
		{"empty secret", func(c *Config) { c.Secret = "" }},
		{"zero upload cap", func(c *Config) { c.MaxUploadMB = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
