package media

import (
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
)

type fakeStream struct {
	mu    sync.Mutex
	state ReadyState
	frame image.Image
	stops atomic.Int32
}

func newFakeStream(w, h int) *fakeStream {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	return &fakeStream{state: HaveEnoughData, frame: img}
}

func (f *fakeStream) ReadyState() ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeStream) Frame() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.frame == nil {
		return nil, ErrNoFrame
	}
	return f.frame, nil
}

func (f *fakeStream) Stop() error {
	f.stops.Add(1)
	return nil
}

type fakeDevice struct {
	err     error
	opened  atomic.Int32
	streams []*fakeStream
	mu      sync.Mutex
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) Open(ctx context.Context) (Stream, error) {
	d.opened.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeStream(64, 48)
	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}
