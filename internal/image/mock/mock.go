package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/photo-editor/internal/image"
)

// Processor implements a mock image processor
type Processor struct {
}

// ProcessImage returns an error instead of processing an image
func (p *Processor) ProcessImage(ctx context.Context, task *image.Task) (processedImage []byte, err error) {
	return nil, fmt.Errorf("processing error")
}
