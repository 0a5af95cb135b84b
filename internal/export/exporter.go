package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"snapvault/internal/collections"
	"snapvault/internal/logging"
	"snapvault/internal/mediastore"
	"snapvault/internal/naming"
	"snapvault/internal/services"
)

// Result reports the outcome for one attempted collection. Collections with
// zero stored items never produce a Result.
type Result struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	FileCount    int    `json:"file_count"`
	Success      bool   `json:"success"`
	ArchivePath  string `json:"archive_path,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Progress is invoked once per exported collection, before its archive is
// written. current counts from 1 in input order; total is the input length.
type Progress func(current, total int, label string)

// Exporter streams stored collection items into zip archives under a fixed
// export directory.
type Exporter struct {
	media     *mediastore.Store
	exportDir string
	logger    *slog.Logger
}

// New builds an exporter writing archives into exportDir.
func New(media *mediastore.Store, exportDir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{media: media, exportDir: exportDir, logger: logger}
}

// ExportAll archives every non-empty collection in input order. A failing
// collection has its partial archive removed and the batch continues; only a
// canceled context or an unusable export directory aborts the whole batch.
func (e *Exporter) ExportAll(ctx context.Context, cols []collections.Collection, username string, onProgress Progress) ([]Result, error) {
	if err := os.MkdirAll(e.exportDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "export", "export", "create export directory", err)
	}

	results := make([]Result, 0, len(cols))
	total := len(cols)
	for i, col := range cols {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		key := naming.Key(col.Key)
		items, err := e.media.Query(key)
		if err != nil {
			results = append(results, Result{
				Key:          key,
				Label:        col.Label,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			continue
		}
		if len(items) == 0 {
			continue
		}

		if onProgress != nil {
			onProgress(i+1, total, col.Label)
		}
		results = append(results, e.exportOne(key, effectiveLabel(col), items, username))
	}
	return results, nil
}

// effectiveLabel prefers the display label and falls back to the key so the
// default collection still names its archive sensibly.
func effectiveLabel(col collections.Collection) string {
	if col.Label != "" {
		return col.Label
	}
	return naming.DisplayLabel(col.Key)
}

func (e *Exporter) exportOne(key, label string, items []mediastore.Item, username string) Result {
	result := Result{Key: key, Label: label, FileCount: len(items)}

	archivePath := filepath.Join(e.exportDir, naming.ZipFileName(username, label, len(items)))
	out, err := os.Create(archivePath)
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("create archive: %v", err)
		return result
	}

	if err := e.writeArchive(out, key, items); err != nil {
		out.Close()
		os.Remove(archivePath)
		result.ErrorMessage = err.Error()
		e.logger.Error("collection export failed",
			logging.String(logging.FieldCollection, key),
			logging.Error(err))
		return result
	}
	if err := out.Close(); err != nil {
		os.Remove(archivePath)
		result.ErrorMessage = fmt.Sprintf("finalize archive: %v", err)
		return result
	}

	result.Success = true
	result.ArchivePath = archivePath
	e.logger.Info("collection exported",
		logging.String(logging.FieldCollection, key),
		logging.Int("files", len(items)),
		logging.String("archive", archivePath))
	return result
}

// writeArchive streams every readable item into one entry each. An item
// whose content cannot be opened is logged and skipped; only write-side
// failures abort the archive.
func (e *Exporter) writeArchive(out io.Writer, key string, items []mediastore.Item) error {
	zw := zip.NewWriter(out)
	for _, item := range items {
		rc, err := e.media.OpenRead(item)
		if err != nil {
			e.logger.Warn("export item unreadable, skipped",
				logging.String(logging.FieldCollection, key),
				logging.String("item", item.Name),
				logging.Error(err))
			continue
		}

		name := item.Name
		if name == "" {
			name = naming.EntryFallbackName(time.Now())
		}
		entry, err := zw.Create(name)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create archive entry %q: %w", name, err)
		}
		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			return fmt.Errorf("write archive entry %q: %w", name, err)
		}
		rc.Close()
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
