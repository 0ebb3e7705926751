package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverJSON     = "json"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Port         string        `yaml:"port"`
	DBDriver     string        `yaml:"db_driver"`
	DBDSN        string        `yaml:"db_dsn"`
	Secret       string        `yaml:"secret"`
	CookieSecure bool          `yaml:"cookie_secure"`
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
	Storage      StorageConfig `yaml:"storage"`
	Log          LogConfig     `yaml:"log"`
	Admin        AdminConfig   `yaml:"admin"`
	Login        LoginConfig   `yaml:"login"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	UploadDir string `yaml:"upload_dir"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	S3Prefix  string `yaml:"s3_prefix"`
	// S3Endpoint points the client at an S3-compatible service such as MinIO.
	S3Endpoint string `yaml:"s3_endpoint"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AdminConfig seeds an admin account on startup when both fields are set.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoginConfig throttles POST /login and POST /register.
type LoginConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

func Default() *Config {
	return &Config{
		Port:        "8080",
		DBDriver:    DriverSQLite,
		DBDSN:       "filedrop.db",
		Secret:      "change-me-in-production",
		MaxUploadMB: 10,
		Storage: StorageConfig{
			Backend:   StorageLocal,
			UploadDir: "uploads",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Login: LoginConfig{
			RatePerSecond: 2,
			Burst:         10,
		},
	}
}

// Load reads filename on top of the defaults. A missing file is not an error;
// callers get the defaults back together with os.ErrNotExist so they can log it.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	return cfg, nil
}

// ApplyEnv loads .env when present and lets environment variables override
// whatever the file set.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	setString(&c.Port, "PORT")
	setString(&c.DBDriver, "DB_DRIVER")
	setString(&c.DBDSN, "DB_DSN")
	setString(&c.Secret, "SESSION_SECRET")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.UploadDir, "UPLOAD_DIR")
	setString(&c.Storage.S3Bucket, "S3_BUCKET")
	setString(&c.Storage.S3Region, "S3_REGION")
	setString(&c.Storage.S3Prefix, "S3_PREFIX")
	setString(&c.Storage.S3Endpoint, "S3_ENDPOINT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Admin.Username, "ADMIN_USERNAME")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverJSON:
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db_dsn is required")
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("storage.upload_dir is required for local storage")
		}
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
