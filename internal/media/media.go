// Package media owns the live video source: device acquisition, the single
// active session holding it, and release on every exit path.
package media

import (
	"context"
	"image"
)

// ReadyState mirrors how much of the stream is buffered. Samplers only read
// frames at HaveCurrentData or above.
type ReadyState int

const (
	HaveNothing ReadyState = iota
	HaveMetadata
	HaveCurrentData
	HaveFutureData
	HaveEnoughData
)

// Stream is a running capture. Frame returns the most recent frame at the
// device's native resolution.
type Stream interface {
	ReadyState() ReadyState
	Frame() (image.Image, error)
	Stop() error
}

// Device opens streams. Open returns domain.ErrPermissionDenied when access
// is refused and domain.ErrDeviceUnavailable for any other failure.
type Device interface {
	Name() string
	Open(ctx context.Context) (Stream, error)
}

// State is the lifecycle of a Session.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateActive
	StateDenied
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateDenied:
		return "denied"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ready reports whether a frame can be drawn from s.
func Ready(s Stream) bool {
	return s != nil && s.ReadyState() >= HaveCurrentData
}
