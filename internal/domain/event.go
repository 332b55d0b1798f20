package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	CategoryResident = "PENGHUNI"
	CategoryUnknown  = "UNKNOWN"
)

// Event is one entry of the backend's recognition activity log.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Timestamp   Timestamp `json:"timestamp"`
	Status      string    `json:"status"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Category    string    `json:"category,omitempty"`
	SnapshotURL string    `json:"snapshot_url,omitempty"`
}

// ResolvedCategory prefers the backend's category and otherwise derives it
// from name and status.
func (e Event) ResolvedCategory() string {
	if e.Category != "" {
		return e.Category
	}
	name := strings.TrimSpace(e.Name)
	if name != "" && !strings.EqualFold(name, UnknownName) && strings.EqualFold(e.Status, StatusAllowed) {
		return CategoryResident
	}
	return CategoryUnknown
}

// ResolvedStatus fills in a status when the backend omitted it.
func (e Event) ResolvedStatus() string {
	if e.Status != "" {
		return e.Status
	}
	if e.ResolvedCategory() == CategoryUnknown {
		return StatusDenied
	}
	return StatusAllowed
}

// localLayouts are interpreted in the local time zone.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// ParseTimestamp accepts the backend's "YYYY-MM-DD HH:MM:SS" literal as local
// time or any RFC 3339 string. Anything else yields now.
func ParseTimestamp(raw string, now func() time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now()
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return now()
}

// Timestamp decodes the loosely formatted timestamps sent by the backend.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Now()
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Now()
		return nil
	}
	t.Time = ParseTimestamp(raw, time.Now)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339))
}
