// Package webhook delivers signed detection events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/notify"
)

const EventDetected = "recognition.detected"

var ErrQueueFull = errors.New("webhook queue full")

type Config struct {
	URL         string
	Secret      string
	Timeout     time.Duration
	MaxAttempts int
	QueueSize   int
	// Delay before the second attempt; it doubles on every further retry.
	BaseBackoff time.Duration
}

// Event is the JSON body of a delivery.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      notify.Message `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type delivery struct {
	event   Event
	payload []byte
}

// Dispatcher queues detections and posts them from a single worker.
// Publish never blocks the recognition loop; a full queue drops the event.
type Dispatcher struct {
	config Config
	client *http.Client
	queue  chan delivery
	logger *slog.Logger

	mu        sync.Mutex
	delivered uint64
	failed    uint64
	dropped   uint64
}

func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	config = withDefaults(config)
	return &Dispatcher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		queue:  make(chan delivery, config.QueueSize),
		logger: logger,
	}
}

func withDefaults(c Config) Config {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = time.Second
	}
	return c
}

// Publish enqueues one detection. Results without faces are ignored.
func (d *Dispatcher) Publish(result domain.RecognitionResult) error {
	if !result.Detected() {
		return nil
	}

	now := time.Now()
	event := Event{
		ID:        uuid.NewString(),
		Type:      EventDetected,
		Data:      notify.NewMessage(result, now),
		Timestamp: now,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case d.queue <- delivery{event: event, payload: payload}:
		return nil
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("webhook worker started", slog.String("url", d.config.URL))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("webhook worker stopped")
			return
		case job := <-d.queue:
			d.deliver(ctx, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job delivery) {
	backoff := d.config.BaseBackoff
	for attempt := 1; ; attempt++ {
		err := d.send(ctx, job)
		if err == nil {
			d.mu.Lock()
			d.delivered++
			d.mu.Unlock()
			return
		}
		if attempt >= d.config.MaxAttempts || ctx.Err() != nil {
			d.mu.Lock()
			d.failed++
			d.mu.Unlock()
			d.logger.Error("webhook delivery failed",
				slog.String("event_id", job.event.ID),
				slog.Int("attempts", attempt),
				slog.Any("error", err),
			)
			return
		}

		d.logger.Warn("webhook delivery retry scheduled",
			slog.String("event_id", job.event.ID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (d *Dispatcher) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.URL, bytes.NewReader(job.payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(d.config.Secret, job.payload))
	req.Header.Set(HeaderEvent, job.event.Type)
	req.Header.Set(HeaderDelivery, job.event.ID)
	req.Header.Set("User-Agent", "HomeGuard-Webhook/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Delivered: d.delivered,
		Failed:    d.failed,
		Dropped:   d.dropped,
		Pending:   len(d.queue),
	}
}
