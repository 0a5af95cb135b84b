package testsupport

import (
	"context"
	"sync"

	"snapvault/internal/capture"
)

// FrameSource is an in-memory capture source for tests. Queued frames are
// handed out one per AcquireLatestFrame call.
type FrameSource struct {
	mu      sync.Mutex
	frames  []*capture.Frame
	started bool
	starts  int
}

// NewFrameSource returns an empty source.
func NewFrameSource() *FrameSource {
	return &FrameSource{}
}

// Start marks the source running.
func (f *FrameSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.starts++
	return nil
}

// AcquireLatestFrame pops the oldest queued frame.
func (f *FrameSource) AcquireLatestFrame() (*capture.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil, false
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, true
}

// Stop marks the source idle.
func (f *FrameSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
}

// Queue appends a frame for a later AcquireLatestFrame.
func (f *FrameSource) Queue(frame *capture.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

// Starts reports how many times Start ran.
func (f *FrameSource) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Frame builds a small valid frame for capture tests.
func Frame() *capture.Frame {
	raw := capture.RawFrame{
		Pix:         make([]byte, 4*2*2),
		Width:       2,
		Height:      2,
		Stride:      8,
		PixelStride: 4,
	}
	return capture.NewFrame(raw, nil)
}
