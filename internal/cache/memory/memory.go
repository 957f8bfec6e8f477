package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/DMarby/photo-editor/internal/cache"
)

type item struct {
	key  string
	data []byte
}

// Provider implements an in-memory cache that evicts the least recently used objects
// once the stored data exceeds maxBytes
type Provider struct {
	maxBytes int64
	size     int64
	order    *list.List
	cache    map[string]*list.Element
	mutex    sync.Mutex
}

// New returns a new Provider instance. A maxBytes of 0 means unlimited.
func New(maxBytes int64) *Provider {
	return &Provider{
		maxBytes: maxBytes,
		order:    list.New(),
		cache:    make(map[string]*list.Element),
	}
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	element, exists := p.cache[key]
	if !exists {
		return nil, cache.ErrNotFound
	}

	p.order.MoveToFront(element)
	return element.Value.(*item).data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte) (err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if element, exists := p.cache[key]; exists {
		p.size -= int64(len(element.Value.(*item).data))
		p.order.Remove(element)
		delete(p.cache, key)
	}

	// Objects larger than the whole cache are not stored
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil
	}

	p.cache[key] = p.order.PushFront(&item{key, data})
	p.size += int64(len(data))

	for p.maxBytes > 0 && p.size > p.maxBytes {
		oldest := p.order.Back()
		evicted := oldest.Value.(*item)
		p.order.Remove(oldest)
		delete(p.cache, evicted.key)
		p.size -= int64(len(evicted.data))
	}

	return nil
}

// Len returns the number of cached objects
func (p *Provider) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.cache)
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
