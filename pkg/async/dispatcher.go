// Package async runs work that must outlive the HTTP request that started it.
package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

// Dispatcher runs fire-and-forget tasks detached from the request context.
// With Inline set, tasks run on the caller's goroutine instead. Once Wait has
// been called, late tasks also run inline.
type Dispatcher struct {
	inline  bool
	timeout time.Duration
	logger  logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(inline bool, timeout time.Duration, logger logrus.FieldLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		inline:  inline,
		timeout: timeout,
		logger:  logging.OrNop(logger),
	}
}

// Go schedules fn. fn gets a fresh context bounded by the dispatcher timeout,
// so a cancelled request does not cancel it. Panics are logged, not raised.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context)) {
	d.mu.Lock()
	if d.inline || d.closed {
		d.mu.Unlock()
		d.run(name, fn)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		d.run(name, fn)
	}()
}

func (d *Dispatcher) run(name string, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.WithFields(logrus.Fields{
				"task":  name,
				"error": fmt.Sprint(rec),
			}).Error("background task panicked")
		}
	}()
	fn(ctx)
}

// Wait stops accepting background tasks and blocks until every scheduled one
// has finished.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
