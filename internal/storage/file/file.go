package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/DMarby/photo-editor/internal/storage"
)

// Provider implements a directory based image storage
type Provider struct {
	path string
}

// New returns a new Provider instance
func New(path string) (*Provider, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	return &Provider{
		path,
	}, nil
}

// Get returns the data of the named image
func (p *Provider) Get(ctx context.Context, name string) ([]byte, error) {
	if !storage.ValidName(name) {
		return nil, storage.ErrInvalidName
	}

	imageData, err := os.ReadFile(filepath.Join(p.path, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	return imageData, nil
}

// Put stores data under the given name, replacing any existing image
func (p *Provider) Put(ctx context.Context, name string, data []byte) error {
	if !storage.ValidName(name) {
		return storage.ErrInvalidName
	}

	// Write to a temporary file first so readers never see a partial image
	tmp, err := os.CreateTemp(p.path, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(p.path, name))
}
