package capture

import (
	"image"
	"sync"
	"time"
)

// PendingCapture is a captured image staged for user accept or reject.
type PendingCapture struct {
	Image         image.Image
	CollectionKey string
	StagedAt      time.Time
}

// PendingSlot holds at most one unconfirmed capture. A second capture is
// rejected rather than silently replacing the one awaiting review.
type PendingSlot struct {
	mu      sync.Mutex
	current *PendingCapture
}

// NewPendingSlot constructs an empty slot.
func NewPendingSlot() *PendingSlot {
	return &PendingSlot{}
}

// TrySet stages capture if the slot is empty. Returns false without
// touching the existing occupant otherwise.
func (s *PendingSlot) TrySet(capture *PendingCapture) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return false
	}
	s.current = capture
	return true
}

// Get peeks at the staged capture without clearing it.
func (s *PendingSlot) Get() (*PendingCapture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// Discard clears the slot unconditionally. A no-op when empty.
func (s *PendingSlot) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
