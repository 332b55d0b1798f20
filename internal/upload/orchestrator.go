// Package upload ships an enrollment capture to the backend: sequential
// sample batches, one training pass, then resident reconciliation.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/enroll"
)

// Backend is the subset of the backend client the orchestrator drives.
type Backend interface {
	UploadFaces(ctx context.Context, name string, samples []backend.Sample, train bool) (*domain.UploadResult, error)
	Train(ctx context.Context, maxImagesPerPerson int) error
	CheckDataset(ctx context.Context, name string) domain.DatasetStatus
	ListResidents(ctx context.Context) ([]domain.Resident, error)
	CreateResident(ctx context.Context, in domain.ResidentInput) (*domain.Resident, error)
	UpdateResident(ctx context.Context, id int64, in domain.ResidentInput) (*domain.Resident, error)
}

// Releaser frees the camera once the run is over.
type Releaser interface {
	Release() error
}

type Stage string

const (
	StageUpload    Stage = "upload"
	StageTrain     Stage = "train"
	StageReconcile Stage = "reconcile"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Progress describes where a run currently is.
type Progress struct {
	RunID   uuid.UUID `json:"run_id"`
	Stage   Stage     `json:"stage"`
	Batch   int       `json:"batch,omitempty"`
	Batches int       `json:"batches,omitempty"`
	Sent    int       `json:"sent"`
	Total   int       `json:"total"`
	Message string    `json:"message"`
}

// Outcome is the final report of a run. Err is nil on success.
type Outcome struct {
	RunID       uuid.UUID        `json:"run_id"`
	Name        string           `json:"name"`
	Resident    *domain.Resident `json:"resident,omitempty"`
	FaceCount   int              `json:"face_count"`
	Trained     bool             `json:"trained"`
	FailedBatch int              `json:"failed_batch,omitempty"`
	Err         error            `json:"-"`
	Message     string           `json:"message"`
}

type Hooks struct {
	OnProgress func(Progress)
}

type Config struct {
	BatchSize      int
	TrainMaxImages int
	Role           string
}

func DefaultConfig() Config {
	return Config{
		BatchSize:      80,
		TrainMaxImages: 200,
		Role:           "Penghuni",
	}
}

type Orchestrator struct {
	client Backend
	config Config
	hooks  Hooks
	logger *slog.Logger
}

func NewOrchestrator(client Backend, config Config, hooks Hooks, logger *slog.Logger) *Orchestrator {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.TrainMaxImages <= 0 {
		config.TrainMaxImages = def.TrainMaxImages
	}
	if config.Role == "" {
		config.Role = def.Role
	}
	return &Orchestrator{
		client: client,
		config: config,
		hooks:  hooks,
		logger: logger,
	}
}

// Partition splits items into consecutive batches of at most size,
// preserving order. The batches share items' backing array.
func Partition[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// SampleFilename names the index-th sample (1-based) of a resident.
func SampleFilename(name string, index int) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
	return safe + "_" + strconv.Itoa(index) + ".jpeg"
}

// Run uploads capture and reconciles the resident record. Whatever
// happens, release is called before the final progress report; a failed
// run is not resumable and must be recaptured.
func (o *Orchestrator) Run(ctx context.Context, capture enroll.Capture, release Releaser) (outcome Outcome) {
	start := time.Now()
	outcome = Outcome{RunID: capture.RunID, Name: capture.Name}

	defer func() {
		if release != nil {
			if err := release.Release(); err != nil {
				o.logger.Warn("camera release after enrollment failed", slog.Any("error", err))
			}
		}

		if outcome.Err != nil {
			outcome.Message = fmt.Sprintf("Gagal menyelesaikan pendaftaran (%s). Jika upload sempat berjalan, data wajah mungkin sudah tersimpan.", errorText(outcome.Err))
			o.report(Progress{RunID: capture.RunID, Stage: StageFailed, Total: len(capture.Frames), Message: outcome.Message})
			o.logger.Error("enrollment failed",
				slog.String("run_id", capture.RunID.String()),
				slog.String("name", capture.Name),
				slog.Duration("elapsed", time.Since(start)),
				slog.Any("error", outcome.Err),
			)
		} else {
			outcome.Message = fmt.Sprintf("Data penghuni %s berhasil disimpan. Total sampel: %d.", outcome.Resident.Name, outcome.FaceCount)
			o.report(Progress{RunID: capture.RunID, Stage: StageDone, Sent: len(capture.Frames), Total: len(capture.Frames), Message: outcome.Message})
			o.logger.Info("enrollment completed",
				slog.String("run_id", capture.RunID.String()),
				slog.String("name", capture.Name),
				slog.Int64("resident_id", outcome.Resident.ID),
				slog.Int("face_count", outcome.FaceCount),
				slog.Duration("elapsed", time.Since(start)),
			)
		}
	}()

	if len(capture.Frames) == 0 {
		outcome.Err = domain.ErrPrecondition.WithMessage("Tidak ada gambar wajah yang berhasil diambil. Proses dibatalkan.")
		return outcome
	}

	last, failedBatch, err := o.uploadBatches(ctx, capture)
	if err != nil {
		outcome.FailedBatch = failedBatch
		outcome.Err = err
		return outcome
	}

	outcome.Trained = o.train(ctx, capture)

	faceCount := len(capture.Frames)
	if last != nil && last.FaceCount > 0 {
		faceCount = last.FaceCount
	}
	if ds := o.client.CheckDataset(ctx, capture.Name); ds.Exists {
		faceCount = ds.FaceCount
	}
	outcome.FaceCount = faceCount

	o.report(Progress{RunID: capture.RunID, Stage: StageReconcile, Sent: len(capture.Frames), Total: len(capture.Frames), Message: "Menyimpan data penghuni..."})

	resident, err := o.reconcile(ctx, capture.Name, capture.ResidentID, faceCount)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Resident = resident
	if resident.FaceCount > 0 {
		outcome.FaceCount = resident.FaceCount
	}
	return outcome
}

// uploadBatches sends batches strictly one after another and stops at the
// first failure. failedBatch is 1-based.
func (o *Orchestrator) uploadBatches(ctx context.Context, capture enroll.Capture) (last *domain.UploadResult, failedBatch int, err error) {
	batches := Partition(capture.Frames, o.config.BatchSize)
	total := len(capture.Frames)
	sent := 0

	o.logger.Info("uploading enrollment samples",
		slog.String("run_id", capture.RunID.String()),
		slog.Int("images", total),
		slog.Int("batches", len(batches)),
	)

	for i, batch := range batches {
		n := i + 1
		o.report(Progress{
			RunID:   capture.RunID,
			Stage:   StageUpload,
			Batch:   n,
			Batches: len(batches),
			Sent:    sent,
			Total:   total,
			Message: fmt.Sprintf("Mengirim batch %d/%d (%d/%d)...", n, len(batches), sent+len(batch), total),
		})

		samples := make([]backend.Sample, len(batch))
		for j, frame := range batch {
			samples[j] = backend.Sample{
				Filename: SampleFilename(capture.Name, sent+j+1),
				Data:     frame.Data,
			}
		}

		result, err := o.client.UploadFaces(ctx, capture.Name, samples, false)
		if err != nil {
			return nil, n, domain.ErrPartialUpload.
				WithError(err).
				WithMessage(fmt.Sprintf("Gagal Unggah Wajah (batch %d): %s", n, errorText(err)))
		}

		sent += len(batch)
		last = result
		o.logger.Debug("batch uploaded",
			slog.String("run_id", capture.RunID.String()),
			slog.Int("batch", n),
			slog.Int("sent", sent),
		)
	}

	return last, 0, nil
}

// train runs the single training pass. Its failure is logged only: the
// samples are already stored on the backend.
func (o *Orchestrator) train(ctx context.Context, capture enroll.Capture) bool {
	o.report(Progress{RunID: capture.RunID, Stage: StageTrain, Sent: len(capture.Frames), Total: len(capture.Frames), Message: "Upload selesai. Menjalankan training model..."})

	if err := o.client.Train(ctx, o.config.TrainMaxImages); err != nil {
		o.logger.Warn("training failed",
			slog.String("run_id", capture.RunID.String()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// reconcile updates the resident named by id, else the one whose name
// matches case-insensitively, else creates one.
func (o *Orchestrator) reconcile(ctx context.Context, name string, id *int64, faceCount int) (*domain.Resident, error) {
	in := domain.ResidentInput{Name: name, Role: o.config.Role, FaceCount: faceCount}

	targetID, err := o.resolveTarget(ctx, name, id)
	if err != nil {
		return nil, err
	}

	if targetID != 0 {
		resident, err := o.client.UpdateResident(ctx, targetID, in)
		if err != nil {
			return nil, fmt.Errorf("update resident %d: %w", targetID, err)
		}
		return resident, nil
	}

	resident, err := o.client.CreateResident(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create resident: %w", err)
	}
	return resident, nil
}

func (o *Orchestrator) resolveTarget(ctx context.Context, name string, id *int64) (int64, error) {
	if id != nil && *id > 0 {
		return *id, nil
	}

	residents, err := o.client.ListResidents(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve resident: %w", err)
	}
	for _, r := range residents {
		if r.ID > 0 && r.MatchesName(name) {
			return r.ID, nil
		}
	}
	return 0, nil
}

func (o *Orchestrator) report(p Progress) {
	if o.hooks.OnProgress != nil {
		o.hooks.OnProgress(p)
	}
}

// errorText is the user-facing description of err: our own message when
// we raised it, else the backend's, else the raw error.
func errorText(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code != domain.ErrTransientNetwork.Code {
		return appErr.Message
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return err.Error()
}
