// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrImgBBAPIKeyRequired is returned when hosted-url delivery uses ImgBB without IMGBB_API_KEY.
	ErrImgBBAPIKeyRequired = errors.New("config: IMGBB_API_KEY is required for hosted-url delivery")
	// ErrS3BucketRequired is returned when the S3 backend lacks S3_BUCKET or S3_REGION.
	ErrS3BucketRequired = errors.New("config: S3_BUCKET and S3_REGION are required for the s3 upload backend")
	// ErrInvalidDeliveryMode is returned for an unknown DELIVERY_MODE.
	ErrInvalidDeliveryMode = errors.New("config: DELIVERY_MODE must be hosted-url or direct-stream")
	// ErrInvalidUploadBackend is returned for an unknown UPLOAD_BACKEND.
	ErrInvalidUploadBackend = errors.New("config: UPLOAD_BACKEND must be imgbb or s3")
	// ErrInvalidValue is returned when a numeric setting is out of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Delivery modes.
const (
	DeliveryHostedURL    = "hosted-url"
	DeliveryDirectStream = "direct-stream"
)

// Upload backends.
const (
	BackendImgBB = "imgbb"
	BackendS3    = "s3"
)

// maxAttemptsCeiling keeps the last retry scale positive.
const maxAttemptsCeiling = 4

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Conversion settings
	DeliveryMode    string  `env:"DELIVERY_MODE, default=hosted-url" json:"delivery_mode"`
	SizeEnforced    bool    `env:"SIZE_ENFORCED, default=true" json:"size_enforced"`
	SizeBudgetBytes int64   `env:"SIZE_BUDGET_BYTES, default=8388608" json:"size_budget_bytes"`
	MaxAttempts     int     `env:"MAX_ATTEMPTS, default=3" json:"max_attempts"`
	MaxUploadMB     int     `env:"MAX_UPLOAD_MB, default=20" json:"max_upload_mb"`
	DefaultFPS      int     `env:"DEFAULT_FPS, default=10" json:"default_fps"`
	DefaultScale    float64 `env:"DEFAULT_SCALE, default=0" json:"default_scale"` // 0 selects the mode default
	VerifyContent   bool    `env:"VERIFY_CONTENT, default=false" json:"verify_content"`

	// Media settings
	FFmpegPath  string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`
	FFprobePath string `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`

	// Storage settings
	UploadFolder   string        `env:"UPLOAD_FOLDER, default=/tmp/video2gif" json:"upload_folder"`
	CleanupRetries int           `env:"CLEANUP_RETRIES, default=3" json:"cleanup_retries"`
	CleanupDelay   time.Duration `env:"CLEANUP_DELAY, default=200ms" json:"cleanup_delay"`

	// Upload settings
	UploadBackend      string        `env:"UPLOAD_BACKEND, default=imgbb" json:"upload_backend"`
	UploadTimeout      time.Duration `env:"UPLOAD_TIMEOUT, default=30s" json:"upload_timeout"`
	ImgBBAPIKey        string        `env:"IMGBB_API_KEY" json:"-"` // Masked in JSON
	ImgBBExpirationSec int           `env:"IMGBB_EXPIRATION_SEC, default=0" json:"imgbb_expiration_sec"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3KeyPrefix        string `env:"S3_KEY_PREFIX" json:"s3_key_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// NeedsUploader returns true if finished GIFs are uploaded.
func (c *Config) NeedsUploader() bool {
	return c.DeliveryMode == DeliveryHostedURL
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load() (*Config, error) {
	return load(context.Background(), nil)
}

// load processes the environment, or lookuper when non-nil.
func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}

	ecfg := &envconfig.Config{Target: cfg, Lookuper: lookuper}
	if lookuper == nil {
		ecfg.Lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, ecfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.DeliveryMode = strings.ToLower(strings.TrimSpace(cfg.DeliveryMode))
	cfg.UploadBackend = strings.ToLower(strings.TrimSpace(cfg.UploadBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.DeliveryMode {
	case DeliveryHostedURL, DeliveryDirectStream:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDeliveryMode, c.DeliveryMode)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: PORT %d", ErrInvalidValue, c.Port)
	}
	if c.SizeBudgetBytes <= 0 {
		return fmt.Errorf("%w: SIZE_BUDGET_BYTES must be positive", ErrInvalidValue)
	}
	if c.MaxAttempts < 0 || c.MaxAttempts > maxAttemptsCeiling {
		return fmt.Errorf("%w: MAX_ATTEMPTS must be between 0 and %d", ErrInvalidValue, maxAttemptsCeiling)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("%w: MAX_UPLOAD_MB must be positive", ErrInvalidValue)
	}
	if c.DefaultFPS <= 0 {
		return fmt.Errorf("%w: DEFAULT_FPS must be positive", ErrInvalidValue)
	}
	if c.DefaultScale < 0 || c.DefaultScale > 1 {
		return fmt.Errorf("%w: DEFAULT_SCALE must be in [0, 1]", ErrInvalidValue)
	}
	if c.CleanupRetries <= 0 {
		return fmt.Errorf("%w: CLEANUP_RETRIES must be positive", ErrInvalidValue)
	}

	if !c.NeedsUploader() {
		return nil
	}
	switch c.UploadBackend {
	case BackendImgBB:
		if c.ImgBBAPIKey == "" {
			return ErrImgBBAPIKeyRequired
		}
	case BackendS3:
		if !c.S3Enabled() {
			return ErrS3BucketRequired
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidUploadBackend, c.UploadBackend)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, DeliveryMode: %s, SizeEnforced: %t, SizeBudgetBytes: %d, MaxAttempts: %d, MaxUploadMB: %d, DefaultFPS: %d, DefaultScale: %.2f, UploadFolder: %s, UploadBackend: %s, ImgBBAPIKey: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.DeliveryMode,
		c.SizeEnforced,
		c.SizeBudgetBytes,
		c.MaxAttempts,
		c.MaxUploadMB,
		c.DefaultFPS,
		c.DefaultScale,
		c.UploadFolder,
		c.UploadBackend,
		mask(c.ImgBBAPIKey),
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// mask hides a secret while showing whether it is set.
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
