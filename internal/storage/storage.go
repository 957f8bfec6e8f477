package storage

import (
	"context"
	"errors"
	"strings"
)

// Provider is an interface for retrieving and saving image files by name
type Provider interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// Errors
var (
	ErrNotFound    = errors.New("Image does not exist")
	ErrInvalidName = errors.New("Invalid image name")
)

// ValidName reports whether name can be used as an object name.
// Names are a single path element such as "1.jpg".
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 255 {
		return false
	}

	return !strings.ContainsAny(name, "/\\\x00")
}
