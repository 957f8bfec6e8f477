// Package session tracks an original image together with an edited copy of it.
package session

import (
	"errors"

	"github.com/DMarby/photo-editor/internal/filter"
	"github.com/DMarby/photo-editor/internal/pixel"
)

// Errors
var (
	ErrNoImageLoaded = errors.New("no image loaded")
	ErrNilBuffer     = errors.New("nil buffer")
)

// Session holds an original image and the edited result of the last operation.
// The original is never modified after Load; the edited image is replaced wholesale
// by every Apply and Reset. A Session is not safe for concurrent use.
type Session struct {
	original *pixel.Buffer
	edited   *pixel.Buffer
}

// New returns an empty session
func New() *Session {
	return &Session{}
}

// Load replaces the session contents with a copy of the given buffer
func (s *Session) Load(b *pixel.Buffer) error {
	if b == nil {
		return ErrNilBuffer
	}

	s.original = b.Copy()
	s.edited = b.Copy()
	return nil
}

// Loaded reports whether an image has been loaded
func (s *Session) Loaded() bool {
	return s.original != nil
}

// Width returns the width of the loaded image, or 0
func (s *Session) Width() int {
	if !s.Loaded() {
		return 0
	}

	return s.original.Width()
}

// Height returns the height of the loaded image, or 0
func (s *Session) Height() int {
	if !s.Loaded() {
		return 0
	}

	return s.original.Height()
}

// Reset discards all edits
func (s *Session) Reset() error {
	if !s.Loaded() {
		return ErrNoImageLoaded
	}

	s.edited = s.original.Copy()
	return nil
}

// Apply replaces the edited image with the result of the filter
func (s *Session) Apply(kind filter.Kind) error {
	if !s.Loaded() {
		return ErrNoImageLoaded
	}

	edited, err := filter.Apply(kind, s.original, s.edited)
	if err != nil {
		return err
	}

	s.edited = edited
	return nil
}

// Original returns a copy of the original image
func (s *Session) Original() (*pixel.Buffer, error) {
	if !s.Loaded() {
		return nil, ErrNoImageLoaded
	}

	return s.original.Copy(), nil
}

// Edited returns a copy of the edited image
func (s *Session) Edited() (*pixel.Buffer, error) {
	if !s.Loaded() {
		return nil, ErrNoImageLoaded
	}

	return s.edited.Copy(), nil
}
