package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"snapvault/internal/collections"
	"snapvault/internal/export"
	"snapvault/internal/logging"
	"snapvault/internal/services"
)

// Failure modes of StartExport.
var (
	ErrExportBusy    = fmt.Errorf("%w: an export batch is already running", services.ErrConflict)
	ErrEmptyUsername = fmt.Errorf("%w: export username is empty", services.ErrValidation)
)

// ExportStatus is a point-in-time snapshot of the most recent export batch.
type ExportStatus struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	Running      bool            `json:"running"`
	Current      int             `json:"current"`
	Total        int             `json:"total"`
	CurrentLabel string          `json:"current_label,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at,omitempty"`
	Results      []export.Result `json:"results,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type exportJob struct {
	status ExportStatus
}

// StartExport launches one export batch over every collection, built-in and
// custom. Only one batch runs at a time; a second request while one is in
// flight fails with ErrExportBusy.
func (d *Daemon) StartExport(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	cols, err := d.ListCollections(ctx)
	if err != nil {
		return "", err
	}

	d.exportMu.Lock()
	if d.exportJob != nil && d.exportJob.status.Running {
		d.exportMu.Unlock()
		return "", ErrExportBusy
	}
	jobID := uuid.NewString()
	d.exportJob = &exportJob{status: ExportStatus{
		ID:        jobID,
		Username:  username,
		Running:   true,
		Total:     len(cols),
		StartedAt: time.Now(),
	}}
	runCtx := d.ctx
	d.exportMu.Unlock()

	if runCtx == nil {
		runCtx = context.Background()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runExport(runCtx, jobID, username, cols)
	}()
	return jobID, nil
}

// ExportStatus returns the snapshot of the latest batch, if any was started.
func (d *Daemon) ExportStatus() (ExportStatus, bool) {
	d.exportMu.Lock()
	defer d.exportMu.Unlock()
	if d.exportJob == nil {
		return ExportStatus{}, false
	}
	status := d.exportJob.status
	status.Results = append([]export.Result(nil), d.exportJob.status.Results...)
	return status, true
}

func (d *Daemon) runExport(ctx context.Context, jobID, username string, cols []collections.Collection) {
	onProgress := func(current, total int, label string) {
		d.exportMu.Lock()
		if d.exportJob != nil && d.exportJob.status.ID == jobID {
			d.exportJob.status.Current = current
			d.exportJob.status.Total = total
			d.exportJob.status.CurrentLabel = label
		}
		d.exportMu.Unlock()
	}

	results, err := d.exporter.ExportAll(ctx, cols, username, onProgress)

	succeeded, failed := 0, 0
	for _, res := range results {
		if res.Success {
			succeeded++
		} else {
			failed++
		}
	}

	if succeeded > 0 {
		if saveErr := d.collections.SaveLastExportName(ctx, username); saveErr != nil {
			d.logger.Warn("failed to remember export username", logging.Error(saveErr))
		}
	}

	d.exportMu.Lock()
	if d.exportJob != nil && d.exportJob.status.ID == jobID {
		d.exportJob.status.Running = false
		d.exportJob.status.FinishedAt = time.Now()
		d.exportJob.status.CurrentLabel = ""
		d.exportJob.status.Results = results
		if err != nil {
			d.exportJob.status.ErrorMessage = err.Error()
		}
	}
	d.exportMu.Unlock()

	if err != nil {
		d.logger.Warn("export batch aborted", logging.Error(err))
		if notifyErr := d.notifier.NotifyError(ctx, err, "export"); notifyErr != nil {
			d.logger.Warn("export notification failed", logging.Error(notifyErr))
		}
		return
	}

	d.logger.Info("export batch finished",
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed))
	if notifyErr := d.notifier.NotifyExportCompleted(ctx, succeeded, failed, d.cfg.Paths.ExportDir); notifyErr != nil {
		d.logger.Warn("export notification failed", logging.Error(notifyErr))
	}
}

// LastExportName returns the username remembered from the last successful
// batch, for prefilling export prompts.
func (d *Daemon) LastExportName(ctx context.Context) (string, error) {
	return d.collections.LastExportName(ctx)
}
