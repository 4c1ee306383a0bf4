// Package bootstrap provides dependency initialization for the video-to-GIF API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maauso/video2gif-api/internal/config"
	"github.com/maauso/video2gif-api/internal/conversion"
	"github.com/maauso/video2gif-api/internal/media"
	"github.com/maauso/video2gif-api/internal/storage"
	"github.com/maauso/video2gif-api/internal/upload"
)

// Dependencies holds all initialized dependencies for the HTTP server and CLI.
type Dependencies struct {
	Converter *conversion.Service
	Storage   *storage.LocalStorage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Initialize temp storage
	store, err := storage.NewLocalStorage(cfg.UploadFolder,
		storage.WithCleanupRetry(cfg.CleanupRetries, cfg.CleanupDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("upload_folder", store.TempDir()),
	)

	// Initialize uploader for hosted-url delivery
	var uploader upload.Uploader
	if cfg.NeedsUploader() {
		uploader, err = initUploader(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	// Initialize media pipeline
	extractor := media.NewFFmpegExtractor(cfg.FFmpegPath, cfg.FFprobePath)
	encoder := conversion.NewAdaptiveEncoder(extractor, media.NewGIFEncoder(),
		conversion.WithSizeBudget(cfg.SizeBudgetBytes),
		conversion.WithMaxAttempts(cfg.MaxAttempts),
		conversion.WithSizeEnforced(cfg.SizeEnforced),
		conversion.WithEncoderLogger(logger),
	)

	svc, err := conversion.NewService(conversion.Config{
		DeliveryMode:   conversion.DeliveryMode(cfg.DeliveryMode),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		DefaultFPS:     cfg.DefaultFPS,
		DefaultScale:   cfg.DefaultScale,
		VerifyContent:  cfg.VerifyContent,
	}, store, encoder, uploader, logger)
	if err != nil {
		return nil, fmt.Errorf("create conversion service: %w", err)
	}

	return &Dependencies{
		Converter: svc,
		Storage:   store,
	}, nil
}

// initUploader creates the upload backend selected by configuration.
func initUploader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (upload.Uploader, error) {
	if cfg.UploadBackend == config.BackendS3 {
		s3Uploader, err := upload.NewS3Uploader(ctx, upload.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			KeyPrefix:       cfg.S3KeyPrefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 uploader: %w", err)
		}
		logger.Info("S3 uploader configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Uploader, nil
	}

	client, err := upload.NewImgBBClient(cfg.ImgBBAPIKey,
		upload.WithTimeout(cfg.UploadTimeout),
		upload.WithExpiration(time.Duration(cfg.ImgBBExpirationSec)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create ImgBB client: %w", err)
	}
	logger.Info("ImgBB uploader configured",
		slog.Duration("timeout", cfg.UploadTimeout),
	)
	return client, nil
}
