package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DMarby/photo-editor/internal/cache"
	"github.com/DMarby/photo-editor/internal/cache/memory"
)

func TestMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := memory.New(0)

	t.Run("get item", func(t *testing.T) {
		// Add item to the cache
		provider.Set(ctx, "foo", []byte("bar"))

		// Get item from the cache
		data, err := provider.Get(ctx, "foo")
		if err != nil {
			t.Fatal(err)
		}

		if string(data) != "bar" {
			t.Fatal("wrong data")
		}
	})

	t.Run("replace item", func(t *testing.T) {
		provider.Set(ctx, "foo", []byte("baz"))

		data, _ := provider.Get(ctx, "foo")
		if string(data) != "baz" || provider.Len() != 1 {
			t.Fatal("item was not replaced")
		}
	})

	t.Run("get nonexistant item", func(t *testing.T) {
		_, err := provider.Get(ctx, "notfound")
		if err == nil {
			t.Fatal("no error")
		}

		if !errors.Is(err, cache.ErrNotFound) {
			t.Fatalf("wrong error %s", err)
		}
	})
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	provider := memory.New(10)

	provider.Set(ctx, "a", []byte("aaaa"))
	provider.Set(ctx, "b", []byte("bbbb"))

	// Touch a so that b is the least recently used
	provider.Get(ctx, "a")

	provider.Set(ctx, "c", []byte("cccc"))

	if _, err := provider.Get(ctx, "b"); !errors.Is(err, cache.ErrNotFound) {
		t.Error("least recently used item was not evicted")
	}

	for _, key := range []string{"a", "c"} {
		if _, err := provider.Get(ctx, key); err != nil {
			t.Errorf("%s was evicted", key)
		}
	}

	provider.Set(ctx, "huge", make([]byte, 11))
	if _, err := provider.Get(ctx, "huge"); !errors.Is(err, cache.ErrNotFound) {
		t.Error("item larger than the cache was stored")
	}

	if provider.Len() != 2 {
		t.Errorf("wrong length %d", provider.Len())
	}
}
