package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

// File stores one encoded model per entity under a directory.
type File struct {
	dir string
}

// NewFile returns a registry rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(entityID string) string {
	return filepath.Join(f.dir, url.PathEscape(entityID)+".json")
}

// Save writes the model to a temporary file and renames it into place so a
// concurrent Load never sees a partial blob.
func (f *File) Save(_ context.Context, model domain.TrainedModel) error {
	blob, err := Encode(model)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".model-*")
	if err != nil {
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	if err := os.Rename(tmp.Name(), f.path(model.EntityID)); err != nil {
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	return nil
}

func (f *File) Load(_ context.Context, entityID string) (domain.TrainedModel, error) {
	blob, err := os.ReadFile(f.path(entityID))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, err)
	}
	return Decode(blob)
}

// CheckReadiness verifies the directory is still present.
func (f *File) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("registry dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("registry dir %s is not a directory", f.dir)
	}
	return nil
}
