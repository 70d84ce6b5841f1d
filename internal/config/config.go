package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const prefix = "DOMAINIMPORT_"

// Staging backends.
const (
	StagingDisk = "disk"
	StagingS3   = "s3"
)

type Config struct {
	ListenAddr      string
	APIKeys         []string
	JWTSecret       string
	DatabaseURL     string
	UploadDir       string
	Staging         string
	S3              S3Config
	MaxUploadBytes  int64
	UploadRateLimit int
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	DefaultTitle    string
}

type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string

	// Static credentials; both or neither. Empty falls back to the SDK
	// default chain.
	AccessKeyID     string
	SecretAccessKey string

	// PathStyle is forced on when Endpoint is set (MinIO, LocalStack).
	PathStyle bool
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:  getEnv("DATABASE_URL", "domainimport.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "./upload"),
		Staging:      strings.ToLower(getEnv("STAGING", StagingDisk)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		DefaultTitle: getEnv("DEFAULT_TITLE", "导入数据"),
		S3: S3Config{
			Bucket:   getEnv("S3_BUCKET", ""),
			Prefix:   getEnv("S3_PREFIX", "uploads"),
			Region:   getEnv("S3_REGION", ""),
			Endpoint: getEnv("S3_ENDPOINT", ""),

			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
	}
	cfg.S3.PathStyle = cfg.S3.Endpoint != ""

	cfg.APIKeys = splitList(getEnv("API_KEYS", ""))
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	if len(cfg.APIKeys) == 0 && cfg.JWTSecret == "" {
		return nil, errors.New(prefix + "API_KEYS or " + prefix + "JWT_SECRET must be set")
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", ""))

	switch cfg.Staging {
	case StagingDisk:
	case StagingS3:
		if cfg.S3.Bucket == "" {
			return nil, errors.New(prefix + "S3_BUCKET is required when " + prefix + "STAGING=s3")
		}
	default:
		return nil, fmt.Errorf("%sSTAGING %q must be one of: disk, s3", prefix, cfg.Staging)
	}

	if (cfg.S3.AccessKeyID == "") != (cfg.S3.SecretAccessKey == "") {
		return nil, errors.New(prefix + "S3_ACCESS_KEY_ID and " + prefix + "S3_SECRET_ACCESS_KEY must be set together")
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 1<<30)
	if err != nil {
		return nil, fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", prefix, err)
	}
	if maxUpload < 1 {
		return nil, errors.New(prefix + "MAX_UPLOAD_BYTES must be > 0")
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.UploadRateLimit, err = getEnvInt("UPLOAD_RATE_LIMIT", 0)
	if err != nil {
		return nil, fmt.Errorf("%sUPLOAD_RATE_LIMIT: %w", prefix, err)
	}
	if cfg.UploadRateLimit < 0 {
		return nil, errors.New(prefix + "UPLOAD_RATE_LIMIT must be >= 0")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(prefix + key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(prefix + key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}
