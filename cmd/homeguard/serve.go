package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/api"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/notify"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/webhook"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/ws"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard service: live recognition, enrollment and activity API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autostartFlag, "autostart", true, "open the camera and start recognition on boot")
	rootCmd.AddCommand(serveCmd)
}

var autostartFlag bool

func runServe(cmd *cobra.Command, ctx context.Context) error {
	if !cmd.Flags().Changed("autostart") {
		autostartFlag = cfg.Autostart
	}

	logger.Info("starting HomeGuard",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.BackendURL),
	)

	client := newBackendClient(cfg)
	hub := ws.NewHub(logger)
	camera := media.NewManager(newDevice(cfg, logger), logger)

	var sinks notify.Fanout
	if cfg.MQTTEnabled() {
		p := notify.NewPublisher(notify.Config{Broker: cfg.MQTTBroker, Topic: cfg.MQTTTopic}, logger)
		if err := p.Connect(ctx); err != nil {
			// Auto-reconnect keeps trying in the background.
			logger.Warn("mqtt broker not reachable yet", slog.Any("error", err))
		}
		defer p.Disconnect()
		sinks = append(sinks, p)
	}
	if cfg.WebhookEnabled() {
		d := webhook.NewDispatcher(webhook.Config{
			URL:         cfg.WebhookURL,
			Secret:      cfg.WebhookSecret,
			MaxAttempts: cfg.WebhookMaxAttempts,
		}, logger)
		go d.Run(ctx)
		sinks = append(sinks, d)
	}
	var publisher pipeline.Publisher
	if len(sinks) > 0 {
		publisher = sinks
	}

	ctrl := pipeline.New(pipelineConfig(cfg, client.BaseURL()), camera, client, hub, publisher, logger)

	router := api.NewRouter(logger, &api.Dependencies{
		Pipeline:  ctrl,
		Frames:    ctrl,
		Residents: client,
		Activity:  ctrl.Feed(),
		Hub:       hub,
		Probe: func(ctx context.Context) error {
			_, err := client.FetchLogs(ctx, 1)
			return err
		},
		Stream: handler.StreamConfig{
			Interval:  cfg.StreamInterval,
			Quality:   cfg.StreamQuality,
			KeepAlive: cfg.StreamKeepAlive,
		},
		RateLimit: middleware.RateLimiterConfig{
			Max:    cfg.ControlRateLimit,
			Window: time.Minute,
		},
		ResidentRole:  cfg.ResidentRole,
		MinNameLength: cfg.MinNameLength,
		Host:          fmt.Sprintf("localhost:%d", cfg.Port),
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	if autostartFlag {
		// The dashboard opens the camera and starts recognising as soon
		// as it loads; a headless boot does the same.
		go func() {
			if err := ctrl.StartRecognition(ctx); err != nil {
				logger.Warn("autostart failed", slog.Any("error", err))
			}
			_, _ = ctrl.Feed().Refresh(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		_ = ctrl.Shutdown()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Shutdown(); err != nil {
			logger.Error("camera release failed", slog.Any("error", err))
		}
		if err := router.Shutdown(); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out")
	}
	logger.Info("server stopped")

	return nil
}
