package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"snapvault/internal/collections"
	"snapvault/internal/mediastore"
)

func seedImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func seedCollection(t *testing.T, media *mediastore.Store, key string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		pending, err := media.Insert(key, fmt.Sprintf("capture_%d.png", i))
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if _, err := pending.Write([]byte("png bytes")); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := pending.Commit(); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
}

type progressCall struct {
	current, total int
	label          string
}

func TestExportAllMixedBatch(t *testing.T) {
	media, err := mediastore.Open(filepath.Join(t.TempDir(), "captures"))
	if err != nil {
		t.Fatalf("open mediastore: %v", err)
	}
	exportDir := filepath.Join(t.TempDir(), "exports")

	seedCollection(t, media, "animals", 3)
	// "books" stays empty. "cars" has one good item and one listed but
	// unreadable item (a dangling symlink).
	seedCollection(t, media, "cars", 1)
	if err := os.Symlink(filepath.Join(t.TempDir(), "gone.png"),
		filepath.Join(media.Root(), "cars", "capture_zz.png")); err != nil {
		t.Fatalf("plant dangling symlink: %v", err)
	}

	cols := []collections.Collection{
		{Key: "animals", Label: "Animals"},
		{Key: "books", Label: "Books"},
		{Key: "cars", Label: "Cars"},
	}

	var calls []progressCall
	exporter := New(media, exportDir, nil)
	results, err := exporter.ExportAll(context.Background(), cols, "maria", func(current, total int, label string) {
		calls = append(calls, progressCall{current, total, label})
	})
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	// The empty collection is skipped entirely.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].Key != "animals" || results[1].Key != "cars" {
		t.Fatalf("results out of input order: %+v", results)
	}

	if !results[0].Success || results[0].FileCount != 3 {
		t.Fatalf("animals result: %+v", results[0])
	}
	if !results[1].Success || results[1].FileCount != 2 {
		t.Fatalf("cars result: %+v", results[1])
	}

	wantCalls := []progressCall{
		{1, 3, "Animals"},
		{3, 3, "Cars"},
	}
	if len(calls) != len(wantCalls) {
		t.Fatalf("progress calls: %+v", calls)
	}
	for i, want := range wantCalls {
		if calls[i] != want {
			t.Errorf("progress call %d: got %+v, want %+v", i, calls[i], want)
		}
	}

	if results[0].ArchivePath != filepath.Join(exportDir, "maria-animals-3.zip") {
		t.Fatalf("unexpected archive path %q", results[0].ArchivePath)
	}

	// The unreadable item is omitted from the archive but does not fail
	// the job.
	zr, err := zip.OpenReader(results[1].ArchivePath)
	if err != nil {
		t.Fatalf("open cars archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 {
		t.Fatalf("cars archive has %d entries, want 1", len(zr.File))
	}
	if zr.File[0].Name != "capture_0.png" {
		t.Fatalf("unexpected entry %q", zr.File[0].Name)
	}
}

func TestExportAllCollectionFailureContinuesBatch(t *testing.T) {
	media, err := mediastore.Open(filepath.Join(t.TempDir(), "captures"))
	if err != nil {
		t.Fatalf("open mediastore: %v", err)
	}
	exportDir := t.TempDir()

	seedCollection(t, media, "animals", 2)
	seedCollection(t, media, "cars", 1)

	// A directory squatting on the first archive's name makes its
	// creation fail.
	if err := os.Mkdir(filepath.Join(exportDir, "maria-animals-2.zip"), 0o755); err != nil {
		t.Fatalf("plant blocking directory: %v", err)
	}

	cols := []collections.Collection{
		{Key: "animals", Label: "Animals"},
		{Key: "cars", Label: "Cars"},
	}
	exporter := New(media, exportDir, nil)
	results, err := exporter.ExportAll(context.Background(), cols, "maria", nil)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].Success {
		t.Fatalf("expected animals to fail: %+v", results[0])
	}
	if results[0].ErrorMessage == "" {
		t.Fatal("failed result must carry an error message")
	}
	if !results[1].Success {
		t.Fatalf("expected cars to succeed after earlier failure: %+v", results[1])
	}
}

func TestExportAllEmptyBatch(t *testing.T) {
	media, err := mediastore.Open(filepath.Join(t.TempDir(), "captures"))
	if err != nil {
		t.Fatalf("open mediastore: %v", err)
	}
	exporter := New(media, t.TempDir(), nil)

	results, err := exporter.ExportAll(context.Background(), nil, "maria", nil)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

func TestExportUsernameFallback(t *testing.T) {
	media, err := mediastore.Open(filepath.Join(t.TempDir(), "captures"))
	if err != nil {
		t.Fatalf("open mediastore: %v", err)
	}
	exportDir := t.TempDir()
	seedCollection(t, media, "animals", 1)

	exporter := New(media, exportDir, nil)
	results, err := exporter.ExportAll(context.Background(),
		[]collections.Collection{{Key: "animals", Label: "Animals"}}, "  !!  ", nil)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("unexpected results: %+v", results)
	}
	if filepath.Base(results[0].ArchivePath) != "user-animals-1.zip" {
		t.Fatalf("fallback username not applied: %q", results[0].ArchivePath)
	}
}
