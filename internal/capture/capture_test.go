package capture

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"snapvault/internal/mediastore"
	"snapvault/internal/prefstore"
)

type fakeSource struct {
	mu      sync.Mutex
	frames  []*Frame
	started bool
	starts  int
}

func (f *fakeSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	f.starts++
	return nil
}

func (f *fakeSource) AcquireLatestFrame() (*Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil, false
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, true
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
}

func (f *fakeSource) queue(frame *Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func testFrame() *Frame {
	raw := RawFrame{
		Pix:         make([]byte, 4*2*2),
		Width:       2,
		Height:      2,
		Stride:      8,
		PixelStride: 4,
	}
	return NewFrame(raw, nil)
}

type fixture struct {
	source   *fakeSource
	session  *Session
	slot     *PendingSlot
	pipeline *Pipeline
	media    *mediastore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	prefs, err := prefstore.Open(filepath.Join(t.TempDir(), "preferences.db"))
	if err != nil {
		t.Fatalf("open prefstore: %v", err)
	}
	t.Cleanup(func() { _ = prefs.Close() })

	media, err := mediastore.Open(filepath.Join(t.TempDir(), "captures"))
	if err != nil {
		t.Fatalf("open mediastore: %v", err)
	}

	source := &fakeSource{}
	slot := NewPendingSlot()
	session, err := NewSession(context.Background(), source, slot, prefs.Namespace("session"), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return &fixture{
		source:   source,
		session:  session,
		slot:     slot,
		pipeline: NewPipeline(session, slot, media, nil),
		media:    media,
	}
}

func TestPendingSlotSingleOccupancy(t *testing.T) {
	slot := NewPendingSlot()
	first := &PendingCapture{CollectionKey: "movies"}
	if !slot.TrySet(first) {
		t.Fatal("first TrySet must succeed")
	}
	if slot.TrySet(&PendingCapture{CollectionKey: "food"}) {
		t.Fatal("second TrySet must fail while slot is occupied")
	}
	got, ok := slot.Get()
	if !ok || got.CollectionKey != "movies" {
		t.Fatalf("slot content changed: %+v", got)
	}

	slot.Discard()
	if _, ok := slot.Get(); ok {
		t.Fatal("slot must be empty after Discard")
	}
	slot.Discard() // no-op on empty slot
}

func TestSessionStartStopIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if f.source.starts != 1 {
		t.Fatalf("source started %d times, want 1", f.source.starts)
	}
	if !f.session.Active() {
		t.Fatal("session should be active")
	}

	f.session.Stop()
	f.session.Stop()
	if f.session.Active() {
		t.Fatal("session should be idle after Stop")
	}
}

func TestSessionRestartsAfterStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.session.Stop()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if f.source.starts != 2 {
		t.Fatalf("source started %d times, want 2", f.source.starts)
	}
}

func TestDisableConfirmationDiscardsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if !f.session.RequireConfirmation() {
		t.Fatal("confirmation must default to on")
	}
	f.slot.TrySet(&PendingCapture{CollectionKey: "movies", Image: image.NewRGBA(image.Rect(0, 0, 1, 1))})

	if err := f.session.SetRequireConfirmation(ctx, false); err != nil {
		t.Fatalf("SetRequireConfirmation: %v", err)
	}
	if _, ok := f.slot.Get(); ok {
		t.Fatal("disabling confirmation must clear the pending slot")
	}

	// Re-enabling does not touch the slot.
	f.slot.TrySet(&PendingCapture{CollectionKey: "food", Image: image.NewRGBA(image.Rect(0, 0, 1, 1))})
	if err := f.session.SetRequireConfirmation(ctx, true); err != nil {
		t.Fatalf("SetRequireConfirmation: %v", err)
	}
	if _, ok := f.slot.Get(); !ok {
		t.Fatal("enabling confirmation must not clear the slot")
	}
}

func TestRequireConfirmationPersists(t *testing.T) {
	dir := t.TempDir()
	prefs, err := prefstore.Open(filepath.Join(dir, "preferences.db"))
	if err != nil {
		t.Fatalf("open prefstore: %v", err)
	}
	ctx := context.Background()

	session, err := NewSession(ctx, &fakeSource{}, NewPendingSlot(), prefs.Namespace("session"), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := session.SetRequireConfirmation(ctx, false); err != nil {
		t.Fatalf("SetRequireConfirmation: %v", err)
	}
	if err := prefs.Close(); err != nil {
		t.Fatalf("close prefstore: %v", err)
	}

	prefs, err = prefstore.Open(filepath.Join(dir, "preferences.db"))
	if err != nil {
		t.Fatalf("reopen prefstore: %v", err)
	}
	defer prefs.Close()
	restored, err := NewSession(ctx, &fakeSource{}, NewPendingSlot(), prefs.Namespace("session"), nil)
	if err != nil {
		t.Fatalf("NewSession after reopen: %v", err)
	}
	if restored.RequireConfirmation() {
		t.Fatal("flag must survive a restart")
	}
}

func TestCaptureOnceRequiresActiveSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.CaptureOnce(context.Background(), ModeDirect, "")
	if !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
}

func TestCaptureOnceNoFrameReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := f.pipeline.CaptureOnce(ctx, ModeDirect, "")
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func TestCaptureDirectPersistsIntoCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.session.SetCollection("Movies")
	f.source.queue(testFrame())

	events, cancel := f.pipeline.WatchEvents()
	defer cancel()

	res, err := f.pipeline.CaptureOnce(ctx, ModeDirect, "")
	if err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}
	if res.Staged {
		t.Fatal("direct capture must not stage")
	}
	if res.Item.Collection != "movies" {
		t.Fatalf("item stored under %q, want %q", res.Item.Collection, "movies")
	}

	count, err := f.media.Count("movies")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored item, got %d", count)
	}

	select {
	case evt := <-events:
		if evt.Item.Collection != "movies" {
			t.Fatalf("event for wrong collection: %+v", evt)
		}
	default:
		t.Fatal("expected a capture-completed event")
	}
}

func TestPreviewConfirmPersistsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.session.SetCollection("food")
	f.source.queue(testFrame())

	res, err := f.pipeline.CaptureOnce(ctx, ModePreview, "")
	if err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}
	if !res.Staged {
		t.Fatal("preview capture must stage")
	}
	if count, _ := f.media.Count("food"); count != 0 {
		t.Fatalf("staged capture must not be persisted yet, found %d items", count)
	}

	// A second preview while one awaits review is rejected.
	f.source.queue(testFrame())
	_, err = f.pipeline.CaptureOnce(ctx, ModePreview, "")
	if !errors.Is(err, ErrCapturePending) {
		t.Fatalf("expected ErrCapturePending, got %v", err)
	}

	item, err := f.pipeline.ConfirmPending(ctx)
	if err != nil {
		t.Fatalf("ConfirmPending: %v", err)
	}
	if item.Collection != "food" {
		t.Fatalf("confirmed into %q, want %q", item.Collection, "food")
	}
	if _, ok := f.slot.Get(); ok {
		t.Fatal("slot must be empty after confirm")
	}
	if count, _ := f.media.Count("food"); count != 1 {
		t.Fatalf("expected exactly one persisted item, got %d", count)
	}

	_, err = f.pipeline.ConfirmPending(ctx)
	if !errors.Is(err, ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending, got %v", err)
	}
}

func TestPreviewRejectPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.session.SetCollection("food")
	f.source.queue(testFrame())

	if _, err := f.pipeline.CaptureOnce(ctx, ModePreview, ""); err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}
	f.pipeline.RejectPending()

	if _, ok := f.slot.Get(); ok {
		t.Fatal("slot must be empty after reject")
	}
	if count, _ := f.media.Count("food"); count != 0 {
		t.Fatalf("rejected capture must not be persisted, found %d items", count)
	}
}

func TestConfirmFailureLeavesSlotOccupied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// A plain file where the collection directory should go makes every
	// persist into that collection fail.
	blocked := filepath.Join(f.media.Root(), "blocked")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("plant blocking file: %v", err)
	}

	f.source.queue(testFrame())
	if _, err := f.pipeline.CaptureOnce(ctx, ModePreview, "blocked"); err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}

	if _, err := f.pipeline.ConfirmPending(ctx); err == nil {
		t.Fatal("expected ConfirmPending to fail")
	}
	if _, ok := f.slot.Get(); !ok {
		t.Fatal("failed confirm must leave the pending capture in place")
	}

	// The caller can still reject explicitly.
	f.pipeline.RejectPending()
	if _, ok := f.slot.Get(); ok {
		t.Fatal("slot must be empty after reject")
	}
}

func TestCaptureOnceOverrideCollection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.session.SetCollection("movies")
	f.source.queue(testFrame())

	res, err := f.pipeline.CaptureOnce(ctx, ModeDirect, "My Trip!!")
	if err != nil {
		t.Fatalf("CaptureOnce: %v", err)
	}
	if res.Item.Collection != "my_trip" {
		t.Fatalf("override stored under %q, want %q", res.Item.Collection, "my_trip")
	}
}

func TestRawFrameToRGBADropsRowPadding(t *testing.T) {
	// 2x2 frame with 4 bytes of padding per row.
	raw := RawFrame{
		Width:       2,
		Height:      2,
		Stride:      12,
		PixelStride: 4,
	}
	raw.Pix = make([]byte, raw.Stride*raw.Height)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			off := y*raw.Stride + x*4
			raw.Pix[off] = byte(10*y + x)
			raw.Pix[off+3] = 255
		}
	}

	img, err := raw.ToRGBA()
	if err != nil {
		t.Fatalf("ToRGBA: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r, _, _, a := img.At(x, y).RGBA()
			if byte(r>>8) != byte(10*y+x) || a>>8 != 255 {
				t.Fatalf("pixel (%d,%d) corrupted", x, y)
			}
		}
	}
}

func TestRawFrameToRGBARejectsTruncatedBuffer(t *testing.T) {
	raw := RawFrame{
		Pix:         make([]byte, 4),
		Width:       2,
		Height:      2,
		Stride:      8,
		PixelStride: 4,
	}
	if _, err := raw.ToRGBA(); err == nil {
		t.Fatal("expected error for truncated buffer")
	}
}

func TestWatchReplaysLatestToLateSubscriber(t *testing.T) {
	w := NewWatch[int]()
	w.Publish(1)
	w.Publish(2)

	ch, cancel := w.Subscribe()
	defer cancel()
	select {
	case v := <-ch:
		if v != 2 {
			t.Fatalf("late subscriber got %d, want 2", v)
		}
	default:
		t.Fatal("late subscriber must immediately see the latest value")
	}

	w.Publish(3)
	select {
	case v := <-ch:
		if v != 3 {
			t.Fatalf("got %d, want 3", v)
		}
	default:
		t.Fatal("subscriber must see new publishes")
	}
}
