package editor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/image"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/queue"
	"github.com/DMarby/photo-editor/internal/session"
	"github.com/DMarby/photo-editor/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
)

// Processor is an image processor that renders stored images through the filters
type Processor struct {
	queue  *queue.Queue
	tracer *tracing.Tracer
}

var (
	queueSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "image_processor_queue_size",
		Help: "Number of render tasks waiting for or being processed by a worker.",
	})
	processedImages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_processor_processed_images_total",
		Help: "Rendered images by filter.",
	}, []string{"filter"})
)

// New initializes a new processor instance.
// Source images with more than maxPixels pixels are rejected, see codec.DecodeOptions.
func New(ctx context.Context, log *logger.Logger, tracer *tracing.Tracer, workers int, maxPixels int64, cache *image.Cache) *Processor {
	workerQueue := queue.New(ctx, workers, taskProcessor(tracer, cache, &codec.DecodeOptions{MaxPixels: maxPixels}))
	instance := &Processor{
		queue:  workerQueue,
		tracer: tracer,
	}

	go workerQueue.Run()
	log.Infof("starting editor worker queue with %d workers", workers)

	return instance
}

// ProcessImage loads a stored image, applies the task's filter, and returns the encoded result
func (p *Processor) ProcessImage(ctx context.Context, task *image.Task) (processedImage []byte, err error) {
	ctx, span := p.tracer.Start(ctx, "editor.Processor.ProcessImage")
	defer span.End()

	span.SetAttributes(
		attribute.String("image.id", task.ImageID),
		attribute.String("image.filter", task.FilterName()),
		attribute.String("image.format", task.OutputFormat.String()),
	)

	queueSize.Inc()
	defer queueSize.Dec()

	result, err := p.queue.Process(ctx, task)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	processedImages.WithLabelValues(task.FilterName()).Inc()

	image, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("error getting result")
	}

	return image, nil
}

func taskProcessor(tracer *tracing.Tracer, cache *image.Cache, decodeOptions *codec.DecodeOptions) func(ctx context.Context, data interface{}) (interface{}, error) {
	return func(ctx context.Context, data interface{}) (interface{}, error) {
		task, ok := data.(*image.Task)
		if !ok {
			return nil, fmt.Errorf("invalid data")
		}

		imageBuffer, err := cache.Get(ctx, task.ImageID)
		if err != nil {
			return nil, fmt.Errorf("error getting image from cache: %w", err)
		}

		ctx, span := tracer.Start(ctx, "editor.render")
		defer span.End()

		buffer, _, err := codec.DecodeWithOptions(bytes.NewReader(imageBuffer), decodeOptions)
		if err != nil {
			return nil, err
		}

		// Every task gets its own session so workers never share pixel buffers
		s := session.New()
		if err := s.Load(buffer); err != nil {
			return nil, err
		}

		if task.ApplyFilter {
			if err := s.Apply(task.Filter); err != nil {
				return nil, err
			}
		}

		edited, err := s.Edited()
		if err != nil {
			return nil, err
		}

		return codec.EncodeBytes(edited, task.OutputFormat, &codec.Options{Quality: task.Quality})
	}
}
