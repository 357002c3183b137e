package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file kept on disk until it is processed.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Path       string    `json:"-"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// LocalStore writes uploads under a directory, one file per upload named by id.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save copies r to a new file. At most limit bytes are accepted; a larger
// body fails with errTooLarge and nothing is kept.
func (s *LocalStore) Save(name string, r io.Reader, limit int64) (*Document, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, io.LimitReader(r, limit+1))
	if err == nil && size > limit {
		err = errTooLarge
	}
	if err != nil {
		os.Remove(path)
		if err == errTooLarge {
			return nil, err
		}
		return nil, fmt.Errorf("writing file: %w", err)
	}

	return &Document{
		ID:         id,
		Name:       filepath.Base(name),
		Size:       size,
		Path:       path,
		UploadedAt: time.Now(),
	}, nil
}

// Remove deletes the stored content of doc.
func (s *LocalStore) Remove(doc *Document) error {
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", doc.ID, err)
	}
	return nil
}
