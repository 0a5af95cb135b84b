package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"snapvault/internal/capture"
	"snapvault/internal/collections"
	"snapvault/internal/config"
	"snapvault/internal/export"
	"snapvault/internal/logging"
	"snapvault/internal/mediastore"
	"snapvault/internal/naming"
	"snapvault/internal/notifications"
	"snapvault/internal/prefstore"
)

// Services bundles the daemon's collaborators so callers construct and wire
// them explicitly.
type Services struct {
	Prefs       *prefstore.Store
	Media       *mediastore.Store
	Collections *collections.Store
	Session     *capture.Session
	Pipeline    *capture.Pipeline
	Exporter    *export.Exporter
	Notifier    notifications.Service
}

// Daemon coordinates the capture and export services and enforces
// single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	prefs       *prefstore.Store
	media       *mediastore.Store
	collections *collections.Store
	session     *capture.Session
	pipeline    *capture.Pipeline
	exporter    *export.Exporter
	notifier    notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	exportMu  sync.Mutex
	exportJob *exportJob
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool          `json:"running"`
	PID               int           `json:"pid"`
	Session           capture.State `json:"session"`
	HasPending        bool          `json:"has_pending"`
	PendingCollection string        `json:"pending_collection,omitempty"`
	PendingStagedAt   time.Time     `json:"pending_staged_at,omitempty"`
	PreferenceDBPath  string        `json:"preference_db_path"`
	LockFilePath      string        `json:"lock_file_path"`
	CaptureDir        string        `json:"capture_dir"`
	ExportDir         string        `json:"export_dir"`
	Export            *ExportStatus `json:"export,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, svcs Services, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if svcs.Prefs == nil || svcs.Media == nil || svcs.Collections == nil ||
		svcs.Session == nil || svcs.Pipeline == nil || svcs.Exporter == nil {
		return nil, errors.New("daemon requires fully wired services")
	}
	if svcs.Notifier == nil {
		svcs.Notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		prefs:       svcs.Prefs,
		media:       svcs.Media,
		collections: svcs.Collections,
		session:     svcs.Session,
		pipeline:    svcs.Pipeline,
		exporter:    svcs.Exporter,
		notifier:    svcs.Notifier,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Build constructs the full service graph from configuration and wraps it in
// a daemon. The capture source shells out to the configured screenshot
// command.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	prefs, err := prefstore.Open(cfg.PreferenceDBPath())
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}

	media, err := mediastore.Open(cfg.Paths.CaptureDir)
	if err != nil {
		prefs.Close()
		return nil, fmt.Errorf("open media store: %w", err)
	}

	source := capture.NewCommandSource(
		cfg.Capture.Command,
		time.Duration(cfg.Capture.FrameIntervalMS)*time.Millisecond,
		logging.NewComponentLogger(logger, "capture-source"),
	)
	slot := capture.NewPendingSlot()
	session, err := capture.NewSession(ctx, source, slot, prefs.Namespace("session"),
		logging.NewComponentLogger(logger, "session"))
	if err != nil {
		prefs.Close()
		return nil, fmt.Errorf("restore session state: %w", err)
	}

	svcs := Services{
		Prefs:       prefs,
		Media:       media,
		Collections: collections.NewStore(prefs.Namespace("collections")),
		Session:     session,
		Pipeline: capture.NewPipeline(session, slot, media,
			logging.NewComponentLogger(logger, "pipeline")),
		Exporter: export.New(media, cfg.Paths.ExportDir,
			logging.NewComponentLogger(logger, "export")),
		Notifier: notifications.NewService(cfg),
	}
	return New(cfg, svcs, logger)
}

// Start acquires the daemon lock and launches the background workers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another snapvault daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running.Store(true)

	d.startCaptureNotifier()
	d.startAutoCapture()

	d.logger.Info("snapvault daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background workers, stops the capture session, and releases the
// daemon lock. A running export is allowed to finish; it reads only stored
// items and does not depend on session state.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.session.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("snapvault daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.prefs != nil {
		return d.prefs.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// StartSession begins producing frames from the capture source.
func (d *Daemon) StartSession(ctx context.Context) error {
	return d.session.Start(ctx)
}

// StopSession stops the capture source. Idempotent.
func (d *Daemon) StopSession() {
	d.session.Stop()
}

// SessionState returns the current session snapshot.
func (d *Daemon) SessionState() capture.State {
	return d.session.State()
}

// SelectCollection makes rawKey the current capture target after
// sanitization.
func (d *Daemon) SelectCollection(rawKey string) string {
	d.session.SetCollection(rawKey)
	return d.session.CollectionKey()
}

// SetRequireConfirmation toggles the confirmation preference. Turning it off
// discards any pending capture.
func (d *Daemon) SetRequireConfirmation(ctx context.Context, enabled bool) error {
	return d.session.SetRequireConfirmation(ctx, enabled)
}

// CaptureNow grabs one frame. With confirmation enabled the capture stages
// in the pending slot, otherwise it persists immediately.
func (d *Daemon) CaptureNow(ctx context.Context, overrideKey string) (capture.Result, error) {
	mode := capture.ModeDirect
	if d.session.RequireConfirmation() {
		mode = capture.ModePreview
	}
	return d.pipeline.CaptureOnce(ctx, mode, overrideKey)
}

// ConfirmPending persists the staged capture.
func (d *Daemon) ConfirmPending(ctx context.Context) (mediastore.Item, error) {
	return d.pipeline.ConfirmPending(ctx)
}

// RejectPending drops the staged capture.
func (d *Daemon) RejectPending() {
	d.pipeline.RejectPending()
}

// ListCollections returns built-ins merged with stored custom collections.
func (d *Daemon) ListCollections(ctx context.Context) ([]collections.Collection, error) {
	custom, err := d.collections.Load(ctx)
	if err != nil {
		return nil, err
	}
	return collections.Merged(custom), nil
}

// AddCollection registers a new custom collection from a raw label.
func (d *Daemon) AddCollection(ctx context.Context, rawLabel string) ([]collections.Collection, error) {
	return d.collections.Add(ctx, rawLabel, collections.ReservedKeys())
}

// CollectionCounts reports the stored item count per collection key.
func (d *Daemon) CollectionCounts(ctx context.Context, keys []string) (map[string]int, error) {
	counts := make(map[string]int, len(keys))
	for _, raw := range keys {
		key := naming.Key(raw)
		count, err := d.media.Count(key)
		if err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, nil
}

// TestNotification sends a test push notification.
func (d *Daemon) TestNotification(ctx context.Context) error {
	return d.notifier.TestNotification(ctx)
}

// Status reports a consistent snapshot of daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		Session:          d.session.State(),
		PreferenceDBPath: d.cfg.PreferenceDBPath(),
		LockFilePath:     d.lockPath,
		CaptureDir:       d.cfg.Paths.CaptureDir,
		ExportDir:        d.cfg.Paths.ExportDir,
	}
	if key, stagedAt, ok := d.pipeline.PendingState(); ok {
		status.HasPending = true
		status.PendingCollection = key
		status.PendingStagedAt = stagedAt
	}
	if job, ok := d.ExportStatus(); ok {
		status.Export = &job
	}
	return status
}

// startCaptureNotifier forwards capture-completed events into push
// notifications.
func (d *Daemon) startCaptureNotifier() {
	events, cancel := d.pipeline.WatchEvents()
	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-events:
				label := d.collectionLabel(ctx, evt.Item.Collection)
				if err := d.notifier.NotifyCaptureSaved(ctx, label, evt.Item.Name); err != nil {
					d.logger.Warn("capture notification failed", logging.Error(err))
				}
			}
		}
	}()
}

// startAutoCapture runs the periodic capture ticker when configured.
func (d *Daemon) startAutoCapture() {
	interval := time.Duration(d.cfg.Capture.AutoIntervalSeconds) * time.Second
	if interval <= 0 {
		return
	}
	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !d.session.Active() {
					continue
				}
				if _, err := d.CaptureNow(ctx, ""); err != nil {
					switch {
					case errors.Is(err, capture.ErrNoFrame),
						errors.Is(err, capture.ErrCapturePending),
						errors.Is(err, capture.ErrSessionNotActive):
						d.logger.Debug("auto capture skipped", logging.Error(err))
					default:
						d.logger.Warn("auto capture failed", logging.Error(err))
					}
				}
			}
		}
	}()
}

func (d *Daemon) collectionLabel(ctx context.Context, key string) string {
	custom, err := d.collections.Load(ctx)
	if err == nil {
		for _, col := range custom {
			if col.Key == key {
				return col.Label
			}
		}
	}
	return naming.DisplayLabel(key)
}
