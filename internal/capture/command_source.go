package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"snapvault/internal/logging"
	"snapvault/internal/services"
)

// CommandSource shells out to a configured screenshot command on a fixed
// interval and keeps the newest decoded frame. The command must write one
// PNG image to stdout and exit.
type CommandSource struct {
	command  string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	latest  *Frame
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCommandSource builds a source around the given shell command.
func NewCommandSource(command string, interval time.Duration, logger *slog.Logger) *CommandSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &CommandSource{command: command, interval: interval, logger: logger}
}

// Start launches the refresh loop.
func (s *CommandSource) Start(ctx context.Context) error {
	if s.command == "" {
		return fmt.Errorf("%w: capture command is not configured", services.ErrValidation)
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("%w: capture source already started", services.ErrConflict)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.refreshLoop(loopCtx, done)
	return nil
}

func (s *CommandSource) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.refreshOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		}
	}
}

func (s *CommandSource) refreshOnce(ctx context.Context) {
	frame, err := s.captureFrame(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("frame refresh failed", logging.Error(err))
		}
		return
	}
	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()
}

func (s *CommandSource) captureFrame(ctx context.Context) (*Frame, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", s.command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return nil, fmt.Errorf("capture command: %w (%s)", err, msg)
		}
		return nil, fmt.Errorf("capture command: %w", err)
	}

	decoded, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode capture output: %w", err)
	}
	rgba, ok := decoded.(*image.RGBA)
	if !ok {
		bounds := decoded.Bounds()
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, decoded, bounds.Min, draw.Src)
	}

	raw := RawFrame{
		Pix:         rgba.Pix,
		Width:       rgba.Rect.Dx(),
		Height:      rgba.Rect.Dy(),
		Stride:      rgba.Stride,
		PixelStride: 4,
	}
	return NewFrame(raw, nil), nil
}

// AcquireLatestFrame consumes the newest frame, if any arrived since the
// last take.
func (s *CommandSource) AcquireLatestFrame() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	frame := s.latest
	s.latest = nil
	return frame, true
}

// Stop cancels the refresh loop and drops any buffered frame.
func (s *CommandSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	if s.latest != nil {
		s.latest.Release()
		s.latest = nil
	}
	s.mu.Unlock()
}
