// Package activity serves the recognition activity log kept by the backend.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// DateLayout is the calendar date accepted by FilterByDate.
const DateLayout = "2006-01-02"

type Source interface {
	FetchLogs(ctx context.Context, limit int) ([]domain.Event, error)
	FetchEvent(ctx context.Context, id int64) (*domain.Event, error)
}

// Entry is an event as shown on the dashboard, with category and status
// already resolved.
type Entry struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Category    string    `json:"category"`
	Confidence  *float64  `json:"confidence,omitempty"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
}

type Config struct {
	Limit  int
	Latest int
	// BaseURL resolves snapshot paths that start with "/".
	BaseURL string
}

func DefaultConfig() Config {
	return Config{Limit: 200, Latest: 5}
}

// Feed caches the latest entries and pushes them to a publisher after
// every refresh.
type Feed struct {
	source  Source
	config  Config
	publish func([]Entry)
	logger  *slog.Logger

	mu        sync.RWMutex
	latest    []Entry
	updatedAt time.Time
}

func NewFeed(source Source, config Config, publish func([]Entry), logger *slog.Logger) *Feed {
	def := DefaultConfig()
	if config.Limit <= 0 {
		config.Limit = def.Limit
	}
	if config.Latest <= 0 {
		config.Latest = def.Latest
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Feed{
		source:  source,
		config:  config,
		publish: publish,
		logger:  logger,
	}
}

// Refresh refetches the log and keeps the newest entries. The backend
// returns them newest first.
func (f *Feed) Refresh(ctx context.Context) ([]Entry, error) {
	events, err := f.source.FetchLogs(ctx, f.config.Limit)
	if err != nil {
		f.logger.Warn("activity refresh failed", slog.Any("error", err))
		return nil, err
	}

	n := min(len(events), f.config.Latest)
	latest := make([]Entry, 0, n)
	for _, e := range events[:n] {
		latest = append(latest, f.entry(e))
	}

	f.mu.Lock()
	f.latest = latest
	f.updatedAt = time.Now()
	f.mu.Unlock()

	if f.publish != nil {
		f.publish(latest)
	}
	return latest, nil
}

// Latest returns the entries from the last successful refresh.
func (f *Feed) Latest() []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Entry, len(f.latest))
	copy(out, f.latest)
	return out
}

func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updatedAt
}

// List returns the full log window, restricted to one local calendar date
// when date is not empty.
func (f *Feed) List(ctx context.Context, date string) ([]Entry, error) {
	events, err := f.source.FetchLogs(ctx, f.config.Limit)
	if err != nil {
		return nil, err
	}
	if date != "" {
		events, err = FilterByDate(events, date)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, f.entry(e))
	}
	return entries, nil
}

// Event returns a single event with its snapshot URL made absolute.
func (f *Feed) Event(ctx context.Context, id int64) (*Entry, error) {
	e, err := f.source.FetchEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := f.entry(*e)
	return &entry, nil
}

func (f *Feed) entry(e domain.Event) Entry {
	return Entry{
		ID:          e.ID,
		Name:        e.Name,
		Timestamp:   e.Timestamp.Time,
		Status:      e.ResolvedStatus(),
		Category:    e.ResolvedCategory(),
		Confidence:  e.Confidence,
		SnapshotURL: f.snapshotURL(e.SnapshotURL),
	}
}

func (f *Feed) snapshotURL(raw string) string {
	if strings.HasPrefix(raw, "/") && f.config.BaseURL != "" {
		return f.config.BaseURL + raw
	}
	return raw
}

// FilterByDate keeps events whose local calendar date is date
// ("YYYY-MM-DD").
func FilterByDate(events []domain.Event, date string) ([]domain.Event, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return nil, domain.ErrBadRequest.WithMessage(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
	}

	out := make([]domain.Event, 0, len(events))
	for _, e := range events {
		y, m, d := e.Timestamp.In(time.Local).Date()
		if y == day.Year() && m == day.Month() && d == day.Day() {
			out = append(out, e)
		}
	}
	return out, nil
}
