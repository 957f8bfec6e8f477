package image

import (
	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/filter"
)

// Task is an image rendering task
type Task struct {
	ImageID      string
	ApplyFilter  bool
	Filter       filter.Kind
	OutputFormat codec.Format
	Quality      int
}

// NewTask creates a new image rendering task
func NewTask(imageID string, format codec.Format) *Task {
	return &Task{
		ImageID:      imageID,
		OutputFormat: format,
	}
}

// Apply runs the given filter on the image before encoding it
func (t *Task) Apply(kind filter.Kind) *Task {
	t.ApplyFilter = true
	t.Filter = kind
	return t
}

// WithQuality sets the encoder quality, for lossy formats
func (t *Task) WithQuality(quality int) *Task {
	t.Quality = quality
	return t
}

// FilterName returns the name of the filter applied by the task, or "original"
func (t *Task) FilterName() string {
	if !t.ApplyFilter {
		return "original"
	}

	return t.Filter.String()
}
