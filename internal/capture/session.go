package capture

import (
	"context"
	"log/slog"
	"sync"

	"snapvault/internal/logging"
	"snapvault/internal/naming"
	"snapvault/internal/prefstore"
)

const prefKeyRequireConfirmation = "require_confirmation"

// State is the externally observable session snapshot.
type State struct {
	Active              bool   `json:"active"`
	CollectionKey       string `json:"collection_key"`
	RequireConfirmation bool   `json:"require_confirmation"`
}

// Session owns the capture-source lifecycle and the current target
// collection. It moves between Idle and Active and can always be restarted.
type Session struct {
	source Source
	slot   *PendingSlot
	prefs  prefstore.Namespace
	logger *slog.Logger
	states *Watch[State]

	mu                  sync.Mutex
	active              bool
	collectionKey       string
	requireConfirmation bool
}

// NewSession wires a session over its capture source and pending slot. The
// require-confirmation flag is restored from the session preference
// namespace and defaults to on.
func NewSession(ctx context.Context, source Source, slot *PendingSlot, prefs prefstore.Namespace, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	require, err := prefs.GetBool(ctx, prefKeyRequireConfirmation, true)
	if err != nil {
		return nil, err
	}
	s := &Session{
		source:              source,
		slot:                slot,
		prefs:               prefs,
		logger:              logger,
		states:              NewWatch[State](),
		requireConfirmation: require,
	}
	s.states.Publish(s.snapshot())
	return s, nil
}

// Start acquires the capture source. A no-op when already active.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	if err := s.source.Start(ctx); err != nil {
		return err
	}
	s.active = true
	s.logger.Info("capture session started")
	s.publishLocked()
	return nil
}

// Stop releases the capture source. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.source.Stop()
	s.active = false
	s.logger.Info("capture session stopped")
	s.publishLocked()
}

// Active reports whether the capture source is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// AcquireLatestFrame takes the newest frame from the source. Returns false
// when the session is idle or no frame is ready.
func (s *Session) AcquireLatestFrame() (*Frame, bool) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return nil, false
	}
	return s.source.AcquireLatestFrame()
}

// SetCollection sanitizes rawKey and makes it the current capture target.
func (s *Session) SetCollection(rawKey string) {
	key := naming.Key(rawKey)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionKey == key {
		return
	}
	s.collectionKey = key
	s.logger.Info("capture target changed", logging.String(logging.FieldCollection, key))
	s.publishLocked()
}

// CollectionKey returns the current sanitized target collection.
func (s *Session) CollectionKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionKey
}

// SetRequireConfirmation updates and persists the confirmation flag. Turning
// confirmation off abandons any capture still awaiting review.
func (s *Session) SetRequireConfirmation(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	previous := s.requireConfirmation
	s.requireConfirmation = enabled
	s.publishLocked()
	s.mu.Unlock()

	if previous && !enabled {
		s.slot.Discard()
		s.logger.Info("pending capture discarded, confirmation disabled")
	}
	if err := s.prefs.PutBool(ctx, prefKeyRequireConfirmation, enabled); err != nil {
		return err
	}
	return nil
}

// RequireConfirmation reports whether captures stage for review first.
func (s *Session) RequireConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireConfirmation
}

// State returns a consistent snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// WatchState subscribes to state changes with replay of the current value.
func (s *Session) WatchState() (<-chan State, func()) {
	return s.states.Subscribe()
}

func (s *Session) snapshot() State {
	return State{
		Active:              s.active,
		CollectionKey:       s.collectionKey,
		RequireConfirmation: s.requireConfirmation,
	}
}

func (s *Session) publishLocked() {
	s.states.Publish(s.snapshot())
}
