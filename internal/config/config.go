package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the MyPhotos backend service.
type Config struct {
	AppPort      int    `validate:"min=1,max=65535"`
	DatabaseURL  string `validate:"required"`
	MigrationDir string `validate:"required"`
	SeedDir      string `validate:"required"`
	LogLevel     string `validate:"oneof=debug info warn warning error"`

	JWTSecret  string        `validate:"required,min=32"`
	JWTIssuer  string        `validate:"required"`
	AccessTTL  time.Duration `validate:"gt=0"`
	RefreshTTL time.Duration `validate:"gtfield=AccessTTL"`

	SessionBackend string `validate:"oneof=postgres redis"`
	RedisAddr      string `validate:"required_if=SessionBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"min=0"`

	StorageBackend  string `validate:"oneof=disk s3"`
	PhotosDir       string `validate:"required_if=StorageBackend disk"`
	S3Bucket        string `validate:"required_if=StorageBackend s3"`
	S3Endpoint      string `validate:"omitempty,url"`
	S3Region        string `validate:"required_if=StorageBackend s3"`
	S3PublicBaseURL string `validate:"omitempty,url"`
	MaxUploadBytes  int64  `validate:"gt=0"`

	UserCacheTTL time.Duration `validate:"gte=0"`

	AuthRateLimit  int           `validate:"gt=0"`
	AuthRateWindow time.Duration `validate:"gt=0"`
	AuthRateBurst  int           `validate:"gt=0"`
}

// Load reads configuration from environment variables, applying sensible defaults
// for local development while allowing overrides through environment variables.
// Variables from a .env file in the working directory are loaded first when present;
// real environment variables take precedence over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	r := reader{}
	cfg := Config{
		AppPort:      r.int("MYPHOTOS_PORT", 8080),
		DatabaseURL:  r.string("MYPHOTOS_DATABASE_URL", "postgres://root@localhost:26257/myphotos?sslmode=disable"),
		MigrationDir: r.string("MYPHOTOS_MIGRATIONS", "migrations"),
		SeedDir:      r.string("MYPHOTOS_SEEDS", "seeds"),
		LogLevel:     strings.ToLower(r.string("MYPHOTOS_LOG_LEVEL", "info")),

		JWTSecret:  r.string("MYPHOTOS_JWT_SECRET", ""),
		JWTIssuer:  r.string("MYPHOTOS_JWT_ISSUER", "myphotos"),
		AccessTTL:  r.duration("MYPHOTOS_ACCESS_TTL", 2*time.Minute),
		RefreshTTL: r.duration("MYPHOTOS_REFRESH_TTL", 7*24*time.Hour),

		SessionBackend: strings.ToLower(r.string("MYPHOTOS_SESSION_BACKEND", "postgres")),
		RedisAddr:      r.string("MYPHOTOS_REDIS_ADDR", ""),
		RedisPassword:  r.string("MYPHOTOS_REDIS_PASSWORD", ""),
		RedisDB:        r.int("MYPHOTOS_REDIS_DB", 0),

		StorageBackend:  strings.ToLower(r.string("MYPHOTOS_STORAGE_BACKEND", "disk")),
		PhotosDir:       r.string("MYPHOTOS_PHOTOS_DIR", "photos"),
		S3Bucket:        r.string("MYPHOTOS_S3_BUCKET", ""),
		S3Endpoint:      r.string("MYPHOTOS_S3_ENDPOINT", ""),
		S3Region:        r.string("MYPHOTOS_S3_REGION", "us-east-1"),
		S3PublicBaseURL: r.string("MYPHOTOS_S3_PUBLIC_BASE_URL", ""),
		MaxUploadBytes:  int64(r.int("MYPHOTOS_MAX_UPLOAD_BYTES", 10<<20)),

		UserCacheTTL: r.duration("MYPHOTOS_USER_CACHE_TTL", time.Minute),

		AuthRateLimit:  r.int("MYPHOTOS_AUTH_RATE_LIMIT", 10),
		AuthRateWindow: r.duration("MYPHOTOS_AUTH_RATE_WINDOW", time.Minute),
		AuthRateBurst:  r.int("MYPHOTOS_AUTH_RATE_BURST", 5),
	}

	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// reader collects parse failures so every malformed variable is reported at once.
type reader struct {
	errs []error
}

func (r *reader) string(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func (r *reader) int(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: expected integer, got %q", key, value))
		return fallback
	}
	return i
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: expected duration, got %q", key, value))
		return fallback
	}
	return d
}
