package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/api"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	backendURL string
	cameraURL  string
)

var rootCmd = &cobra.Command{
	Use:           "homeguard",
	Short:         "Home face-recognition camera dashboard",
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		// Flags win over the environment.
		if backendURL != "" {
			cfg.BackendURL = backendURL
		}
		if cameraURL != "" {
			cfg.CameraURL = cameraURL
		}

		logger = config.NewLogger(cfg)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "recognition backend base URL (overrides BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&cameraURL, "camera", "", "MJPEG camera URL or synthetic://WxH (overrides CAMERA_URL)")
}
