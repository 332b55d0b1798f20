package main

import (
	"log/slog"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/activity"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/config"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/enroll"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/overlay"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/recognition"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/sampler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/upload"
)

// newDevice picks the capture device named by CAMERA_URL. An empty URL
// yields an MJPEG device that reports "No camera configured" on open.
func newDevice(cfg *config.Config, logger *slog.Logger) media.Device {
	if d, ok := media.ParseSynthetic(cfg.CameraURL); ok {
		return d
	}
	return media.NewMJPEGDevice(cfg.CameraURL, logger)
}

func newBackendClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(backend.Config{
		BaseURL:    cfg.BackendURL,
		Timeout:    cfg.BackendTimeout,
		RetryCount: cfg.BackendRetryCount,
	})
}

func pipelineConfig(cfg *config.Config, baseURL string) pipeline.Config {
	return pipeline.Config{
		Recognition: recognition.Config{
			Interval: cfg.RecognitionInterval,
			Timeout:  cfg.RecognitionTimeout,
		},
		Sampler: sampler.Config{
			TargetWidth: cfg.SampleWidth,
			Quality:     cfg.SampleQuality,
		},
		Enroll: enroll.Config{
			Interval:      cfg.CaptureInterval,
			Target:        cfg.CaptureTarget,
			Quality:       cfg.CaptureQuality,
			MinNameLength: cfg.MinNameLength,
		},
		Upload: upload.Config{
			BatchSize:      cfg.UploadBatchSize,
			TrainMaxImages: cfg.TrainMaxImages,
			Role:           cfg.ResidentRole,
		},
		Activity: activity.Config{
			Limit:   cfg.ActivityLimit,
			Latest:  cfg.ActivityLatest,
			BaseURL: baseURL,
		},
		Display: overlay.Config{
			Width:      cfg.DisplayWidth,
			Height:     cfg.DisplayHeight,
			PixelRatio: cfg.DisplayPixelRatio,
		},
	}
}
