package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"nearby-offers/internal/validation"
)

// Store reads and writes whole documents by location.
type Store interface {
	Load(ctx context.Context, location string) ([]byte, error)
	Save(ctx context.Context, location string, data []byte) error
}

// FileStore keeps documents on the local filesystem.
type FileStore struct{}

// Load reads the document at path.
func (FileStore) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &validation.InputError{Source: path, Err: errors.New("document does not exist")}
		}
		return nil, &validation.InputError{Source: path, Err: fmt.Errorf("unable to read document: %w", err)}
	}
	return data, nil
}

// Save writes data to path, replacing any existing file.
func (FileStore) Save(ctx context.Context, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Router dispatches s3:// locations to an object store and everything
// else to the local filesystem.
type Router struct {
	Local  Store
	Object Store // nil when no object store is configured
}

// NewRouter creates a router backed by the filesystem and, optionally, S3.
func NewRouter(object Store) *Router {
	return &Router{Local: FileStore{}, Object: object}
}

// IsObjectLocation reports whether location names an s3:// object.
func IsObjectLocation(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

func (r *Router) pick(location string) (Store, error) {
	if IsObjectLocation(location) {
		if r.Object == nil {
			return nil, fmt.Errorf("%s: object storage is not configured", location)
		}
		return r.Object, nil
	}
	return r.Local, nil
}

// Load implements Store.
func (r *Router) Load(ctx context.Context, location string) ([]byte, error) {
	store, err := r.pick(location)
	if err != nil {
		return nil, &validation.InputError{Source: location, Err: err}
	}
	return store.Load(ctx, location)
}

// Save implements Store.
func (r *Router) Save(ctx context.Context, location string, data []byte) error {
	store, err := r.pick(location)
	if err != nil {
		return err
	}
	return store.Save(ctx, location, data)
}
