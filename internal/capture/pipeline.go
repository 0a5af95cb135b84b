package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"snapvault/internal/logging"
	"snapvault/internal/mediastore"
	"snapvault/internal/naming"
	"snapvault/internal/services"
)

// Mode selects what happens to a captured frame.
type Mode int

const (
	// ModeDirect persists the frame immediately.
	ModeDirect Mode = iota
	// ModePreview stages the frame for user confirmation.
	ModePreview
)

// Failure modes a caller can branch on.
var (
	ErrSessionNotActive = fmt.Errorf("%w: capture session is not active", services.ErrUnavailable)
	ErrNoFrame          = fmt.Errorf("%w: no frame is ready", services.ErrUnavailable)
	ErrCapturePending   = fmt.Errorf("%w: previous capture awaiting confirmation", services.ErrConflict)
	ErrNothingPending   = fmt.Errorf("%w: no capture awaiting confirmation", services.ErrUnavailable)
)

// Event marks one completed persist, for listeners refreshing counts.
type Event struct {
	Item mediastore.Item `json:"item"`
	At   time.Time       `json:"at"`
}

// Result reports where a capture ended up.
type Result struct {
	Staged bool            `json:"staged"`
	Item   mediastore.Item `json:"item,omitempty"`
}

// Pipeline turns raw frames into stored images, either directly or through
// the pending-confirmation slot. Captures are serialized so two writers
// never race on the slot.
type Pipeline struct {
	session *Session
	slot    *PendingSlot
	store   *mediastore.Store
	logger  *slog.Logger
	events  *Watch[Event]

	mu sync.Mutex
}

// NewPipeline wires the pipeline over its collaborators.
func NewPipeline(session *Session, slot *PendingSlot, store *mediastore.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		session: session,
		slot:    slot,
		store:   store,
		logger:  logger,
		events:  NewWatch[Event](),
	}
}

// CaptureOnce grabs the newest frame and routes it per mode. overrideKey,
// when non-empty, replaces the session's current collection after
// sanitization.
func (p *Pipeline) CaptureOnce(ctx context.Context, mode Mode, overrideKey string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.session.Active() {
		return Result{}, ErrSessionNotActive
	}
	frame, ok := p.session.AcquireLatestFrame()
	if !ok {
		return Result{}, ErrNoFrame
	}
	defer frame.Release()

	key := p.session.CollectionKey()
	if overrideKey != "" {
		key = naming.Key(overrideKey)
	}

	img, err := frame.Raw.ToRGBA()
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, "capture", "capture", "convert frame", err)
	}

	if mode == ModePreview {
		staged := p.slot.TrySet(&PendingCapture{
			Image:         img,
			CollectionKey: key,
			StagedAt:      time.Now(),
		})
		if !staged {
			return Result{}, ErrCapturePending
		}
		p.logger.Debug("capture staged for confirmation", logging.String(logging.FieldCollection, key))
		return Result{Staged: true}, nil
	}

	item, err := p.store.Persist(key, img)
	if err != nil {
		return Result{}, services.Wrap(services.ErrIO, "capture", "capture", "persist frame", err)
	}
	p.emitPersisted(item)
	return Result{Item: item}, nil
}

// ConfirmPending persists the staged capture into its stored target
// collection. The slot is cleared only after the persist succeeds, so a
// failed confirm can be retried or rejected explicitly.
func (p *Pipeline) ConfirmPending(ctx context.Context) (mediastore.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, ok := p.slot.Get()
	if !ok {
		return mediastore.Item{}, ErrNothingPending
	}
	item, err := p.store.Persist(pending.CollectionKey, pending.Image)
	if err != nil {
		return mediastore.Item{}, services.Wrap(services.ErrIO, "capture", "confirm", "persist pending capture", err)
	}
	p.slot.Discard()
	p.emitPersisted(item)
	return item, nil
}

// RejectPending drops the staged capture without persisting anything.
func (p *Pipeline) RejectPending() {
	p.slot.Discard()
}

// PendingState reports whether a capture is awaiting review and for which
// collection.
func (p *Pipeline) PendingState() (collectionKey string, stagedAt time.Time, ok bool) {
	pending, ok := p.slot.Get()
	if !ok {
		return "", time.Time{}, false
	}
	return pending.CollectionKey, pending.StagedAt, true
}

// WatchEvents subscribes to capture-completed events.
func (p *Pipeline) WatchEvents() (<-chan Event, func()) {
	return p.events.Subscribe()
}

func (p *Pipeline) emitPersisted(item mediastore.Item) {
	p.events.Publish(Event{Item: item, At: time.Now()})
	p.logger.Info("capture saved",
		logging.String(logging.FieldCollection, item.Collection),
		logging.String("file", item.Name))
}
