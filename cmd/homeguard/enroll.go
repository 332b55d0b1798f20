package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/upload"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/ws"
)

var enrollOpts struct {
	name string
	id   int64
}

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Record and upload face samples for a resident without the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		var residentID *int64
		if cmd.Flags().Changed("id") {
			residentID = &enrollOpts.id
		}
		return runEnroll(cmd.Context(), enrollOpts.name, residentID)
	},
}

func init() {
	enrollCmd.Flags().StringVar(&enrollOpts.name, "name", "", "resident name")
	enrollCmd.Flags().Int64Var(&enrollOpts.id, "id", 0, "existing resident ID to update")
	_ = enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(ctx context.Context, name string, residentID *int64) error {
	client := newBackendClient(cfg)
	camera := media.NewManager(newDevice(cfg, logger), logger)
	reporter := newProgressReporter(os.Stderr)

	ctrl := pipeline.New(pipelineConfig(cfg, client.BaseURL()), camera, client, reporter, nil, logger)
	defer func() { _ = ctrl.Shutdown() }()

	if err := ctrl.StartCamera(ctx); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	if _, err := ctrl.StartEnrollment(name, residentID); err != nil {
		return err
	}

	var finished pipeline.EnrollmentFinished
	select {
	case finished = <-reporter.done:
	case <-ctx.Done():
		if ctrl.CancelEnrollment() {
			return ctx.Err()
		}
		// Uploading already: cancelling the controller aborts the run,
		// which still releases the camera and reports back.
		_ = ctrl.Shutdown()
		finished = <-reporter.done
	}

	reporter.close()
	fmt.Fprintln(os.Stdout, finished.Message)
	if !finished.Success {
		return errors.New(finished.Message)
	}
	return nil
}

// progressReporter renders pipeline events as terminal progress bars.
type progressReporter struct {
	out  io.Writer
	done chan pipeline.EnrollmentFinished

	mu      sync.Mutex
	capture *progressbar.ProgressBar
	upload  *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out, done: make(chan pipeline.EnrollmentFinished, 1)}
}

func (r *progressReporter) Broadcast(eventType ws.EventType, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p := data.(type) {
	case pipeline.CaptureProgress:
		if r.capture == nil {
			r.capture = r.newBar(p.Target, "Merekam wajah")
		}
		_ = r.capture.Set(p.Captured)
	case upload.Progress:
		r.uploadProgress(p)
	case pipeline.EnrollmentFinished:
		select {
		case r.done <- p:
		default:
		}
	}
}

func (r *progressReporter) uploadProgress(p upload.Progress) {
	if p.Total <= 0 {
		return
	}
	if r.upload == nil {
		if r.capture != nil {
			_ = r.capture.Finish()
		}
		r.upload = r.newBar(p.Total, "Mengunggah")
	}
	if p.Message != "" {
		r.upload.Describe(p.Message)
	}
	_ = r.upload.Set(p.Sent)
}

// Status is the live recognition line; a headless enrollment has none.
func (r *progressReporter) Status(text string, ok bool) {}

func (r *progressReporter) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *progressReporter) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bar := range []*progressbar.ProgressBar{r.capture, r.upload} {
		if bar != nil {
			_ = bar.Finish()
		}
	}
}
