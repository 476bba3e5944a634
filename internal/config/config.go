// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDisk = "disk"
	StorageS3   = "s3"
)

type Config struct {
	Port      string
	DBURL     string
	PublicURL string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	StorageBackend string
	UploadDir      string
	MaxUploadBytes int64

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSOrigin string
	LogLevel   slog.Level
	TrustProxy bool
}

// Load reads .env when present, then the process environment. Missing
// required settings and malformed values are reported as one error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error

	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	required := func(key string) string {
		v := get(key, "")
		if v == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is not set", key))
		}
		return v
	}
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(get(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	integer := func(key, def string) int64 {
		n, err := strconv.ParseInt(get(key, def), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}

	cfg := &Config{
		Port:      get("PORT", "8080"),
		DBURL:     required("DB_URL"),
		PublicURL: strings.TrimRight(get("PUBLIC_URL", ""), "/"),

		JWTSecret: required("JWT_SECRET"),
		JWTIssuer: get("JWT_ISS", ""),
		TokenTTL:  duration("TOKEN_TTL", "0s"),

		StorageBackend: strings.ToLower(get("STORAGE_BACKEND", StorageDisk)),
		UploadDir:      get("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: integer("MAX_UPLOAD_BYTES", "5000000"),

		S3Bucket:    get("S3_BUCKET", ""),
		S3Region:    get("S3_REGION", "us-east-1"),
		S3Endpoint:  get("S3_ENDPOINT", ""),
		S3AccessKey: get("S3_ACCESS_KEY", ""),
		S3SecretKey: get("S3_SECRET_KEY", ""),

		RateLimitRequests: int(integer("RATE_LIMIT_REQUESTS", "20")),
		RateLimitWindow:   duration("RATE_LIMIT_WINDOW", "1m"),

		CORSOrigin: get("CORS_ORIGIN", "*"),
	}

	trustProxy, err := strconv.ParseBool(get("TRUST_PROXY", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TRUST_PROXY: %w", err))
	}
	cfg.TrustProxy = trustProxy

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	switch cfg.StorageBackend {
	case StorageDisk:
	case StorageS3:
		if cfg.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET environment variable is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", cfg.StorageBackend))
	}

	if cfg.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("internal/config: %w", err)
	}

	return cfg, nil
}
