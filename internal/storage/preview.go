// Package storage exports finished dish images to disk so they can be
// opened outside the terminal.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hammamikhairi/ottoplate/internal/domain"
	"github.com/hammamikhairi/ottoplate/internal/logger"
)

// Compile-time interface check.
var _ domain.PreviewStore = (*PreviewStore)(nil)

// ErrNoImage is returned when asked to save a snapshot without an image.
var ErrNoImage = errors.New("snapshot has no image")

// Preview describes one exported image.
type Preview struct {
	Path     string
	Dish     domain.DishKind
	MIMEType string
	Size     int
}

// PreviewStore writes images into a directory. Safe for concurrent use.
type PreviewStore struct {
	dir string
	log *logger.Logger

	mu     sync.RWMutex
	latest map[domain.DishKind]Preview
}

// NewPreviewStore creates a store rooted at dir. The directory is created
// on first save.
func NewPreviewStore(dir string, log *logger.Logger) *PreviewStore {
	return &PreviewStore{
		dir:    dir,
		log:    log,
		latest: make(map[domain.DishKind]Preview),
	}
}

// Save writes the snapshot's image and returns the file path. Files are
// named <dish>-<attempt prefix><ext>.
func (s *PreviewStore) Save(ctx context.Context, snap domain.Snapshot) (string, error) {
	if snap.Image == nil || len(snap.Image.Data) == 0 {
		return "", ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create %s: %w", s.dir, err)
	}

	id := snap.AttemptID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = fmt.Sprintf("%d", snap.Attempt)
	}
	name := fmt.Sprintf("%s-%s%s", snap.Dish.Kind, id, extension(snap.Image))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, snap.Image.Data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", path, err)
	}

	p := Preview{
		Path:     path,
		Dish:     snap.Dish.Kind,
		MIMEType: snap.Image.MIMEType,
		Size:     len(snap.Image.Data),
	}

	s.mu.Lock()
	s.latest[p.Dish] = p
	s.mu.Unlock()

	s.log.Info("saved %s preview to %s (%d bytes)", p.Dish, path, p.Size)
	return path, nil
}

// Latest returns the most recent export for kind.
func (s *PreviewStore) Latest(kind domain.DishKind) (Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.latest[kind]
	if !ok {
		return Preview{}, domain.ErrNotFound
	}
	return p, nil
}

// extension picks a file extension from the declared MIME type, falling
// back to sniffing the bytes.
func extension(img *domain.Image) string {
	if m := mimetype.Lookup(img.MIMEType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if ext := mimetype.Detect(img.Data).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}
