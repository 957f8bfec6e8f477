package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DMarby/photo-editor/internal/cache"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/storage"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Checker is a periodic health checker
type Checker struct {
	Ctx        context.Context
	Storage    storage.Provider
	ObjectName string // Object to fetch when checking storage health. Only needed for checking storage health
	Cache      cache.Provider
	status     Status
	mutex      sync.RWMutex
	Log        *logger.Logger
}

// Status contains the healtcheck status
type Status struct {
	Healthy bool   `json:"healthy"`
	Cache   string `json:"cache,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// Run runs a check and then keeps checking periodically until Ctx is done
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) unknown(healthy bool) Status {
	status := Status{
		Healthy: healthy,
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Storage != nil {
		status.Storage = "unknown"
	}

	return status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(c.Ctx, checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()
		c.status = c.unknown(false)
		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := c.unknown(true)

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); !errors.Is(err, cache.ErrNotFound) {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	if c.Storage != nil {
		if _, err := c.Storage.Get(ctx, c.ObjectName); err != nil {
			status.Healthy = false
			status.Storage = "unhealthy"
		} else {
			status.Storage = "healthy"
		}
	}

	channel <- status
}
