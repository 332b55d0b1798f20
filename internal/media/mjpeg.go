package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

var ErrNoFrame = errors.New("no frame decoded yet")

// DefaultMaxFrameBytes bounds a single JPEG part; larger parts are skipped.
const DefaultMaxFrameBytes = 8 << 20

// MJPEGDevice reads a multipart/x-mixed-replace JPEG stream, the format
// served by most IP cameras and webcam bridges.
type MJPEGDevice struct {
	URL            string
	ConnectTimeout time.Duration
	MaxFrameBytes  int64
	httpClient     *http.Client
	logger         *slog.Logger
}

func NewMJPEGDevice(url string, logger *slog.Logger) *MJPEGDevice {
	return &MJPEGDevice{
		URL:            url,
		ConnectTimeout: 10 * time.Second,
		MaxFrameBytes:  DefaultMaxFrameBytes,
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

func (d *MJPEGDevice) Name() string {
	return "mjpeg:" + d.URL
}

// Open connects and starts decoding in the background. It returns once the
// camera has answered with a valid multipart stream.
func (d *MJPEGDevice) Open(ctx context.Context) (Stream, error) {
	if d.URL == "" {
		return nil, domain.ErrDeviceUnavailable.WithMessage("No camera configured")
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	connectCtx, connectCancel := context.WithTimeout(ctx, d.ConnectTimeout)
	defer connectCancel()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, d.URL, nil)
	if err != nil {
		cancel()
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "multipart/x-mixed-replace")
	req.Header.Set("Cache-Control", "no-cache")

	// The request must outlive Open, so the connect deadline is enforced
	// by cancelling the stream context instead of the request context.
	stopWatch := context.AfterFunc(connectCtx, func() {
		if connectCtx.Err() == context.DeadlineExceeded || ctx.Err() != nil {
			cancel()
		}
	})
	resp, err := d.httpClient.Do(req)
	stopWatch()
	if err != nil {
		cancel()
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("connect: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_ = resp.Body.Close()
		cancel()
		return nil, domain.ErrPermissionDenied.WithError(fmt.Errorf("camera returned %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close()
		cancel()
		return nil, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("camera returned %s", resp.Status))
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		_ = resp.Body.Close()
		cancel()
		return nil, domain.ErrDeviceUnavailable.WithError(
			fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type")))
	}

	s := &mjpegStream{
		body:     resp.Body,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   d.logger,
		maxFrame: d.MaxFrameBytes,
		state:    HaveMetadata,
	}
	if s.maxFrame <= 0 {
		s.maxFrame = DefaultMaxFrameBytes
	}
	go s.readLoop(streamCtx, multipart.NewReader(resp.Body, params["boundary"]))

	return s, nil
}

type mjpegStream struct {
	body     io.ReadCloser
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
	maxFrame int64

	mu        sync.RWMutex
	latest    image.Image
	state     ReadyState
	err       error
	frames    uint64
	oversized uint64
}

func (s *mjpegStream) readLoop(ctx context.Context, mr *multipart.Reader) {
	defer close(s.done)

	buf := new(bytes.Buffer)
	for {
		part, err := mr.NextPart()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.logger.Warn("mjpeg stream ended", slog.Any("error", err))
			}
			s.fail(err)
			return
		}

		buf.Reset()
		n, err := io.Copy(buf, io.LimitReader(part, s.maxFrame+1))
		// Close discards whatever is left of an oversized part.
		_ = part.Close()
		if err != nil {
			if ctx.Err() != nil {
				s.fail(ctx.Err())
				return
			}
			continue
		}
		if n > s.maxFrame {
			s.logger.Warn("skipping oversized mjpeg part", slog.Int64("limit", s.maxFrame))
			s.mu.Lock()
			s.oversized++
			s.mu.Unlock()
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(buf.Bytes()))
		if err != nil {
			s.logger.Debug("skipping undecodable mjpeg part",
				slog.Int("bytes", buf.Len()),
				slog.Any("error", err),
			)
			continue
		}

		s.mu.Lock()
		s.latest = img
		s.state = HaveEnoughData
		s.frames++
		s.mu.Unlock()
	}
}

func (s *mjpegStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.state = HaveNothing
}

func (s *mjpegStream) ReadyState() ReadyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *mjpegStream) Frame() (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil || s.state < HaveCurrentData {
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrNoFrame
	}
	return s.latest, nil
}

func (s *mjpegStream) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		_ = s.body.Close()
		<-s.done
		s.mu.Lock()
		s.latest = nil
		s.state = HaveNothing
		s.mu.Unlock()
	})
	return nil
}
