package daemon

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"snapvault/internal/capture"
	"snapvault/internal/collections"
	"snapvault/internal/export"
	"snapvault/internal/testsupport"
)

func newTestDaemon(t *testing.T) (*Daemon, *testsupport.FrameSource) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	prefs := testsupport.MustOpenPrefs(t, cfg)
	media := testsupport.MustOpenMedia(t, cfg)
	source := testsupport.NewFrameSource()
	slot := capture.NewPendingSlot()
	session, err := capture.NewSession(context.Background(), source, slot, prefs.Namespace("session"), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	d, err := New(cfg, Services{
		Prefs:       prefs,
		Media:       media,
		Collections: collections.NewStore(prefs.Namespace("collections")),
		Session:     session,
		Pipeline:    capture.NewPipeline(session, slot, media, nil),
		Exporter:    export.New(media, cfg.Paths.ExportDir, nil),
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, source
}

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on same daemon must fail")
	}

	// A second daemon over the same lock file cannot start.
	other, err := New(d.cfg, Services{
		Prefs:       d.prefs,
		Media:       d.media,
		Collections: d.collections,
		Session:     d.session,
		Pipeline:    d.pipeline,
		Exporter:    d.exporter,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected lock contention error")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should be stopped")
	}
}

func TestCaptureNowRespectsConfirmationFlag(t *testing.T) {
	d, source := newTestDaemon(t)
	ctx := context.Background()

	if err := d.StartSession(ctx); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	d.SelectCollection("movies")

	// Confirmation defaults to on: the capture stages.
	source.Queue(testsupport.Frame())
	res, err := d.CaptureNow(ctx, "")
	if err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}
	if !res.Staged {
		t.Fatal("capture must stage while confirmation is on")
	}
	item, err := d.ConfirmPending(ctx)
	if err != nil {
		t.Fatalf("ConfirmPending: %v", err)
	}
	if item.Collection != "movies" {
		t.Fatalf("confirmed into %q", item.Collection)
	}

	if err := d.SetRequireConfirmation(ctx, false); err != nil {
		t.Fatalf("SetRequireConfirmation: %v", err)
	}
	source.Queue(testsupport.Frame())
	res, err = d.CaptureNow(ctx, "")
	if err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}
	if res.Staged {
		t.Fatal("capture must persist directly while confirmation is off")
	}

	counts, err := d.CollectionCounts(ctx, []string{"movies"})
	if err != nil {
		t.Fatalf("CollectionCounts: %v", err)
	}
	if counts["movies"] != 2 {
		t.Fatalf("expected 2 stored items, got %d", counts["movies"])
	}
}

func TestStatusReportsPendingCapture(t *testing.T) {
	d, source := newTestDaemon(t)
	ctx := context.Background()

	if err := d.StartSession(ctx); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	d.SelectCollection("food")
	source.Queue(testsupport.Frame())
	if _, err := d.CaptureNow(ctx, ""); err != nil {
		t.Fatalf("CaptureNow: %v", err)
	}

	status := d.Status(ctx)
	if !status.HasPending || status.PendingCollection != "food" {
		t.Fatalf("status missing pending capture: %+v", status)
	}
	if !status.Session.Active {
		t.Fatal("status must report active session")
	}

	d.RejectPending()
	status = d.Status(ctx)
	if status.HasPending {
		t.Fatal("status must clear pending after reject")
	}
}

func TestExportBatchLifecycle(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 2; i++ {
		if _, err := d.media.Persist("movies", img); err != nil {
			t.Fatalf("Persist: %v", err)
		}
		// Distinct timestamps keep filenames unique.
		time.Sleep(2 * time.Millisecond)
	}

	jobID, err := d.StartExport(ctx, "maria")
	if err != nil {
		t.Fatalf("StartExport: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var status ExportStatus
	for {
		var ok bool
		status, ok = d.ExportStatus()
		if ok && status.ID == jobID && !status.Running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("export did not finish: %+v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if status.ErrorMessage != "" {
		t.Fatalf("export batch error: %s", status.ErrorMessage)
	}
	if len(status.Results) != 1 {
		t.Fatalf("expected one result (only movies has items), got %+v", status.Results)
	}
	if !status.Results[0].Success || status.Results[0].FileCount != 2 {
		t.Fatalf("unexpected result: %+v", status.Results[0])
	}

	name, err := d.LastExportName(ctx)
	if err != nil {
		t.Fatalf("LastExportName: %v", err)
	}
	if name != "maria" {
		t.Fatalf("username not remembered, got %q", name)
	}
}

func TestStartExportValidation(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	if _, err := d.StartExport(ctx, "   "); !errors.Is(err, ErrEmptyUsername) {
		t.Fatalf("expected ErrEmptyUsername, got %v", err)
	}

	d.exportMu.Lock()
	d.exportJob = &exportJob{status: ExportStatus{ID: "busy", Running: true}}
	d.exportMu.Unlock()

	if _, err := d.StartExport(ctx, "maria"); !errors.Is(err, ErrExportBusy) {
		t.Fatalf("expected ErrExportBusy, got %v", err)
	}
}

func TestAddAndListCollections(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	builtinCount := len(collections.Builtins())
	list, err := d.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(list) != builtinCount {
		t.Fatalf("expected %d built-ins, got %d", builtinCount, len(list))
	}

	if _, err := d.AddCollection(ctx, "Weekend Trip"); err != nil {
		t.Fatalf("AddCollection: %v", err)
	}
	list, err = d.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(list) != builtinCount+1 {
		t.Fatalf("expected %d collections, got %d", builtinCount+1, len(list))
	}
	if _, err := d.AddCollection(ctx, "Movies"); err == nil {
		t.Fatal("adding a built-in label must fail")
	}
}
