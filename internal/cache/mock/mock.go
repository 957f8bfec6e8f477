package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/photo-editor/internal/cache"
)

// Provider is a mock cache
type Provider struct{}

// Get returns "cached" for any key except the ones used to simulate misses and failures
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	switch key {
	case "notfound", "notfounderr", "seterror":
		return nil, cache.ErrNotFound
	case "error":
		return nil, fmt.Errorf("error")
	}

	return []byte("cached"), nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
