package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// Session is the exclusive holder of an open device stream.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	stream Stream
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	releaseOnce sync.Once
	releaseErr  error
	onRelease   func(*Session)
}

// Stream returns the underlying stream, or nil once released.
func (s *Session) Stream() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	return s.stream
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Active() bool {
	return s.State() == StateActive
}

// Release stops the hardware stream. Only the first call touches the device;
// later calls return the first result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		s.state = StateStopped
		stream := s.stream
		onRelease := s.onRelease
		s.mu.Unlock()

		if stream != nil {
			s.releaseErr = stream.Stop()
		}
		if s.releaseErr != nil {
			s.logger.Warn("camera stream stop failed",
				slog.String("session_id", s.ID.String()),
				slog.Any("error", s.releaseErr),
			)
		} else {
			s.logger.Info("camera released",
				slog.String("session_id", s.ID.String()),
				slog.Duration("active_for", time.Since(s.StartedAt)),
			)
		}
		if onRelease != nil {
			onRelease(s)
		}
	})
	return s.releaseErr
}

// Manager hands out at most one active Session for a Device.
type Manager struct {
	device Device
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
	state   State
	lastErr error
}

func NewManager(device Device, logger *slog.Logger) *Manager {
	return &Manager{
		device: device,
		logger: logger,
		state:  StateIdle,
	}
}

// Acquire opens the device. Any session still holding it is released first.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.state = StateRequesting
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Release()
	}

	m.logger.Info("requesting camera", slog.String("device", m.device.Name()))

	stream, err := m.device.Open(ctx)
	if err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lastErr = err
		if errors.Is(err, domain.ErrPermissionDenied) {
			m.state = StateDenied
			return nil, err
		}
		m.state = StateIdle
		if !errors.Is(err, domain.ErrDeviceUnavailable) {
			err = domain.ErrDeviceUnavailable.WithError(err)
		}
		return nil, fmt.Errorf("acquire %s: %w", m.device.Name(), err)
	}

	session := &Session{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		stream:    stream,
		logger:    m.logger,
		state:     StateActive,
	}
	session.onRelease = m.forget

	m.mu.Lock()
	m.current = session
	m.state = StateActive
	m.lastErr = nil
	m.mu.Unlock()

	m.logger.Info("camera active",
		slog.String("device", m.device.Name()),
		slog.String("session_id", session.ID.String()),
	)

	return session, nil
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == s {
		m.current = nil
		m.state = StateStopped
	}
}

// Release stops the current session, if any. Safe to call repeatedly.
func (m *Manager) Release() error {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Release()
}

// Current returns the active session or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError is the most recent acquisition failure, cleared on success.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Placeholder is the text shown where the feed would be.
func (m *Manager) Placeholder() string {
	switch m.State() {
	case StateRequesting:
		return "Meminta izin kamera..."
	case StateDenied:
		return "Akses Kamera DITOLAK. Mohon berikan izin di pengaturan perangkat."
	case StateActive:
		return ""
	}
	if err := m.LastError(); err != nil {
		return fmt.Sprintf("Gagal Akses Kamera: %v", err)
	}
	return "Siap Mengakses Kamera..."
}
