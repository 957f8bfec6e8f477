// Package filter implements the per-pixel and 3x3 kernel filters of the editor.
//
// Filters are pure: Apply never modifies its inputs and returns a new buffer.
// The numeric rules reproduce the behaviour of the original desktop editor,
// quirks included, so results are bit-for-bit comparable with it.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DMarby/photo-editor/internal/pixel"
)

// Errors
var (
	ErrUnknownKind       = errors.New("unknown filter")
	ErrNilBuffer         = errors.New("nil buffer")
	ErrDimensionMismatch = errors.New("original and edited dimensions differ")
)

// Kind is a filter that can be applied to an image
type Kind int

const (
	// Grayscale converts to luminosity grayscale
	Grayscale Kind = iota
	// Invert inverts every channel
	Invert
	// Sepia applies a sepia tone
	Sepia
	// Blur applies a 3x3 blur to the interior pixels
	Blur
	// EdgeDetect writes the Sobel gradient magnitude of the interior pixels
	EdgeDetect
)

var kindNames = map[Kind]string{
	Grayscale:  "grayscale",
	Invert:     "invert",
	Sepia:      "sepia",
	Blur:       "blur",
	EdgeDetect: "edge",
}

var kindAliases = map[string]Kind{
	"gray":           Grayscale,
	"greyscale":      Grayscale,
	"edges":          EdgeDetect,
	"edge-detection": EdgeDetect,
}

// Kinds returns all the available filters
func Kinds() []Kind {
	return []Kind{Grayscale, Invert, Sepia, Blur, EdgeDetect}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ReadsEdited reports whether the filter samples the edited image instead of the original
func (k Kind) ReadsEdited() bool {
	return k == Sepia
}

// ParseKind returns the filter with the given name
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	for kind, kindName := range kindNames {
		if kindName == name {
			return kind, nil
		}
	}

	if kind, ok := kindAliases[name]; ok {
		return kind, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Apply returns a copy of edited with the filter applied.
// The filter samples original, except for Sepia which samples edited.
// Pixels the filter does not process keep the value they had in edited.
func Apply(kind Kind, original, edited *pixel.Buffer) (*pixel.Buffer, error) {
	if original == nil || edited == nil {
		return nil, ErrNilBuffer
	}

	if !original.SameSize(edited) {
		return nil, fmt.Errorf("%w: %dx%d and %dx%d", ErrDimensionMismatch, original.Width(), original.Height(), edited.Width(), edited.Height())
	}

	dst := edited.Copy()

	switch kind {
	case Grayscale:
		grayscale(original, dst)
	case Invert:
		invert(original, dst)
	case Sepia:
		sepia(edited, dst)
	case Blur:
		blur(original, dst)
	case EdgeDetect:
		edgeDetect(original, dst)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	return dst, nil
}
