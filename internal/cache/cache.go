package cache

import (
	"context"
	"errors"

	"github.com/DMarby/photo-editor/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Provider is an interface for getting and setting cached objects
type Provider interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Set(ctx context.Context, key string, data []byte) (err error)
	Shutdown()
}

// LoaderFunc is a function for loading data into a cache
type LoaderFunc func(ctx context.Context, key string) (data []byte, err error)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cache_lookups_total",
	Help: "Cache lookups by result (hit, miss, error).",
}, []string{"result"})

// Auto is a cache that automatically attempts to load objects if they don't exist
type Auto struct {
	Tracer      *tracing.Tracer
	Provider    Provider
	Loader      LoaderFunc
	lookupGroup singleflight.Group
}

// Get returns an object from the cache if it exists, otherwise it loads it into the cache and returns it
func (a *Auto) Get(ctx context.Context, key string) (data []byte, err error) {
	ctx, span := a.Tracer.Start(ctx, "cache.Auto.Get")
	defer span.End()

	// Attempt to get the data from the cache
	data, err = a.Provider.Get(ctx, key)
	// Exit early if the error is nil as we got data from the cache
	// Or if there's an error indicating that something went wrong
	if !errors.Is(err, ErrNotFound) {
		if err != nil {
			lookups.WithLabelValues("error").Inc()
		} else {
			lookups.WithLabelValues("hit").Inc()
		}

		return
	}

	lookups.WithLabelValues("miss").Inc()

	// Use singleflight to avoid concurrent requests
	var v interface{}
	v, err, _ = a.lookupGroup.Do(key, func() (interface{}, error) {
		// A flight that finished after our miss may have stored it already
		if data, err := a.Provider.Get(ctx, key); err == nil {
			return data, nil
		}

		// Get the data
		data, err := a.Loader(ctx, key)
		if err != nil {
			return nil, err
		}

		// Store the data in the cache
		err = a.Provider.Set(ctx, key, data)
		if err != nil {
			return nil, err
		}

		return data, nil
	})

	if err != nil {
		return
	}

	data, _ = v.([]byte)
	return
}

// Errors
var (
	ErrNotFound = errors.New("not found in cache")
)
