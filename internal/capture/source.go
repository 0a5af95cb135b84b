package capture

import "context"

// Source produces raw frames. Implementations keep at most the newest frame
// available; AcquireLatestFrame consumes it.
type Source interface {
	// Start acquires the capture resource. Calling Start on a running
	// source returns an error.
	Start(ctx context.Context) error

	// AcquireLatestFrame takes the newest frame if one is ready. It never
	// blocks; ok is false when no frame has arrived since the last take.
	AcquireLatestFrame() (frame *Frame, ok bool)

	// Stop releases the capture resource. Stopping an idle source is a
	// no-op.
	Stop()
}
