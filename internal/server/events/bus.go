// Package events dispatches domain events to asynchronous handlers.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/quickmart/internal/logging"
)

// UserRegistered is published once a new user has been stored.
type UserRegistered struct {
	UserID string
}

type UserRegisteredHandler interface {
	Name() string
	HandleUserRegistered(ctx context.Context, ev UserRegistered) error
}

var ErrBusClosed = errors.New("event bus closed")

// Bus runs every subscribed handler in its own goroutine. Handlers get a
// context detached from the publishing request, bounded by handlerTimeout.
type Bus struct {
	logger         logging.Logger
	handlerTimeout time.Duration

	mu       sync.RWMutex
	closed   bool
	handlers []UserRegisteredHandler
	wg       sync.WaitGroup
}

func NewBus(logger logging.Logger, handlerTimeout time.Duration) *Bus {
	if handlerTimeout <= 0 {
		handlerTimeout = 30 * time.Second
	}
	return &Bus{
		logger:         logger.With("module", "events"),
		handlerTimeout: handlerTimeout,
	}
}

func (b *Bus) SubscribeUserRegistered(h UserRegisteredHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) PublishUserRegistered(ctx context.Context, ev UserRegistered) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	base := context.WithoutCancel(ctx)
	for _, h := range b.handlers {
		b.wg.Add(1)
		go func(h UserRegisteredHandler) {
			defer b.wg.Done()

			hctx, cancel := context.WithTimeout(base, b.handlerTimeout)
			defer cancel()

			if err := h.HandleUserRegistered(hctx, ev); err != nil {
				b.logger.Error(hctx, "user registered handler failed",
					"handler", h.Name(), "user_id", ev.UserID, "error", err)
				return
			}
			b.logger.Debug(hctx, "user registered handled", "handler", h.Name(), "user_id", ev.UserID)
		}(h)
	}
	return nil
}

// Close stops accepting events and waits for in-flight handlers until ctx
// is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
