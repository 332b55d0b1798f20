package domain

import (
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

const JPEGMime = "image/jpeg"

// SampledFrame is an encoded still taken from the live stream. It is never
// persisted on this side.
type SampledFrame struct {
	ID         uuid.UUID
	Width      int
	Height     int
	Data       []byte
	CapturedAt time.Time
}

// DataURL renders the payload the recognition endpoint expects.
func (f SampledFrame) DataURL() string {
	return "data:" + JPEGMime + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}
