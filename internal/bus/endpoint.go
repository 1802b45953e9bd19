package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Endpoint is one isolated context. Messages are taken from its inbox one at a
// time; a handler that needs to wait replies later from its own goroutine.
type Endpoint struct {
	name     string
	bus      *Bus
	inbox    chan Message
	logger   *zap.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
}

func (e *Endpoint) Name() string {
	return e.name
}

// Handle registers the handler for a message type.
func (e *Endpoint) Handle(msgType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[msgType] = h
}

// Serve dispatches incoming messages until ctx ends.
func (e *Endpoint) Serve(ctx context.Context) error {
	e.logger.Debug("endpoint started")

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("endpoint stopped")
			return ctx.Err()
		case msg := <-e.inbox:
			e.dispatch(ctx, msg)
		}
	}
}

func (e *Endpoint) dispatch(ctx context.Context, msg Message) {
	e.mu.RLock()
	handler, ok := e.handlers[msg.Type]
	e.mu.RUnlock()

	if !ok {
		e.logger.Warn("no handler for message", zap.String("type", msg.Type), zap.String("id", msg.ID))
		e.bus.deliver(msg.ID, nil, fmt.Errorf("%w: %s", ErrNoHandler, msg.Type))
		return
	}

	handler(ctx, msg, e.responder(msg))
}

func (e *Endpoint) responder(msg Message) Respond {
	var once sync.Once

	return func(payload any) {
		once.Do(func() {
			data, err := json.Marshal(payload)
			if err != nil {
				e.logger.Error("marshal reply", zap.String("type", msg.Type), zap.Error(err))
				e.bus.deliver(msg.ID, nil, fmt.Errorf("marshal %s reply: %w", msg.Type, err))
				return
			}

			e.bus.deliver(msg.ID, data, nil)
		})
	}
}
