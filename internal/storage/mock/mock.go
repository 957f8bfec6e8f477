package mock

import (
	"context"
	"fmt"
)

// Provider implements a broken image storage
type Provider struct {
}

// Get always fails
func (p *Provider) Get(ctx context.Context, name string) ([]byte, error) {
	return nil, fmt.Errorf("get error")
}

// Put always fails
func (p *Provider) Put(ctx context.Context, name string, data []byte) error {
	return fmt.Errorf("put error")
}
