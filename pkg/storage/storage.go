// Package storage archives raw statement uploads next to the import run that processed them.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("archived file not found")

// FileInfo contains metadata about an archived upload
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	SHA256      string    `json:"sha256"`
	Path        string    `json:"path"` // relative to the archive root
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores uploads. Anonymous uploads use uuid.Nil as the owner.
type Archive interface {
	// Save stores r under the owner and run and returns its metadata
	Save(ctx context.Context, userID, runID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for an archived upload
	Open(ctx context.Context, userID, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// List returns all uploads of an owner, oldest first
	List(ctx context.Context, userID uuid.UUID) ([]*FileInfo, error)

	// Delete removes an upload and its metadata
	Delete(ctx context.Context, userID, fileID uuid.UUID) error

	// Prune removes every upload created before cutoff and returns how many were removed
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds storage configuration
type Config struct {
	LocalPath string
}

// New creates the archive described by cfg.
func New(cfg *Config) (Archive, error) {
	path := cfg.LocalPath
	if path == "" {
		path = "./uploads"
	}
	return NewLocalStorage(path)
}
