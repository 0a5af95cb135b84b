package mediastore

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"snapvault/internal/naming"
	"snapvault/internal/services"
)

const pendingSuffix = ".pending"

// Item describes one committed image file.
type Item struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Store lays captured images out under a single root directory.
type Store struct {
	root string
}

// Open prepares a media store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: media store root is empty", services.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "mediastore", "open", "create root directory", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string {
	return s.root
}

// collectionDir maps a collection key to its directory. The default
// collection lives in the root itself, every other key in a subdirectory.
func (s *Store) collectionDir(collection string) string {
	if collection == naming.DefaultKey {
		return s.root
	}
	return filepath.Join(s.root, collection)
}

// PendingFile is a staged image that becomes visible only after Commit.
type PendingFile struct {
	file      *os.File
	stagePath string
	finalPath string
	item      Item
	done      bool
}

// Write appends bytes to the staged file.
func (p *PendingFile) Write(b []byte) (int, error) {
	return p.file.Write(b)
}

// Commit flushes the staged file and renames it into place.
func (p *PendingFile) Commit() (Item, error) {
	if p.done {
		return Item{}, fmt.Errorf("%w: pending file already finalized", services.ErrConflict)
	}
	p.done = true
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		os.Remove(p.stagePath)
		return Item{}, services.Wrap(services.ErrIO, "mediastore", "commit", "sync staged file", err)
	}
	if err := p.file.Close(); err != nil {
		os.Remove(p.stagePath)
		return Item{}, services.Wrap(services.ErrIO, "mediastore", "commit", "close staged file", err)
	}
	if err := os.Rename(p.stagePath, p.finalPath); err != nil {
		os.Remove(p.stagePath)
		return Item{}, services.Wrap(services.ErrIO, "mediastore", "commit", "publish staged file", err)
	}
	if info, err := os.Stat(p.finalPath); err == nil {
		p.item.Size = info.Size()
		p.item.ModifiedAt = info.ModTime()
	}
	return p.item, nil
}

// Discard removes the staged file without publishing it. Safe to call after
// Commit; it then does nothing.
func (p *PendingFile) Discard() {
	if p.done {
		return
	}
	p.done = true
	p.file.Close()
	os.Remove(p.stagePath)
}

// Insert stages a new file in the given collection. name defaults to a
// time-based capture filename when empty.
func (s *Store) Insert(collection, name string) (*PendingFile, error) {
	if name == "" {
		name = naming.CaptureFileName(time.Now())
	}
	dir := s.collectionDir(collection)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "mediastore", "insert", "create collection directory", err)
	}

	id := uuid.NewString()
	finalPath := filepath.Join(dir, name)
	stagePath := finalPath + "." + id + pendingSuffix

	f, err := os.OpenFile(stagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "mediastore", "insert", "create staged file", err)
	}
	return &PendingFile{
		file:      f,
		stagePath: stagePath,
		finalPath: finalPath,
		item: Item{
			ID:         id,
			Collection: collection,
			Name:       name,
			Path:       finalPath,
		},
	}, nil
}

// Persist encodes img as PNG into the given collection and commits it.
func (s *Store) Persist(collection string, img image.Image) (Item, error) {
	pending, err := s.Insert(collection, "")
	if err != nil {
		return Item{}, err
	}
	if err := png.Encode(pending, img); err != nil {
		pending.Discard()
		return Item{}, services.Wrap(services.ErrIO, "mediastore", "persist", "encode png", err)
	}
	return pending.Commit()
}

// Query lists the committed images of one collection, oldest first. Staged
// files and subdirectories are skipped. A collection whose directory does
// not exist yet is simply empty.
func (s *Store) Query(collection string) ([]Item, error) {
	dir := s.collectionDir(collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "mediastore", "query", "read collection directory", err)
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), pendingSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, services.Wrap(services.ErrIO, "mediastore", "query", "stat item", err)
		}
		items = append(items, itemFromInfo(collection, dir, info))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ModifiedAt.Equal(items[j].ModifiedAt) {
			return items[i].Name < items[j].Name
		}
		return items[i].ModifiedAt.Before(items[j].ModifiedAt)
	})
	return items, nil
}

// Count reports how many committed images a collection holds.
func (s *Store) Count(collection string) (int, error) {
	items, err := s.Query(collection)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// OpenRead opens one committed item for reading.
func (s *Store) OpenRead(item Item) (io.ReadCloser, error) {
	f, err := os.Open(item.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "mediastore", "open", "open item", err)
	}
	return f, nil
}

// Delete removes one committed item. Deleting an item that is already gone
// is not an error.
func (s *Store) Delete(item Item) error {
	if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.ErrIO, "mediastore", "delete", "remove item", err)
	}
	return nil
}

func itemFromInfo(collection, dir string, info fs.FileInfo) Item {
	return Item{
		ID:         info.Name(),
		Collection: collection,
		Name:       info.Name(),
		Path:       filepath.Join(dir, info.Name()),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}
