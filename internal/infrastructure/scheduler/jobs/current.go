// Package jobs contains the worker's scheduled jobs. The roster refresh job
// publishes each new schedule through Current; the report job reads it.
package jobs

import (
	"sync/atomic"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
)

// Current holds the engine over the most recently generated schedule.
// It is safe for concurrent use.
type Current struct {
	engine      atomic.Pointer[query.Engine]
	fingerprint atomic.Pointer[string]
}

// Engine returns the published engine, or nil before the first refresh.
func (c *Current) Engine() *query.Engine {
	return c.engine.Load()
}

// Fingerprint returns the roster fingerprint of the published engine.
func (c *Current) Fingerprint() string {
	if fp := c.fingerprint.Load(); fp != nil {
		return *fp
	}
	return ""
}

// Publish replaces the engine.
func (c *Current) Publish(e *query.Engine, fingerprint string) {
	c.fingerprint.Store(&fingerprint)
	c.engine.Store(e)
}
