// Package bus connects isolated contexts with asynchronous request/single-reply
// messaging. Payloads cross the boundary JSON encoded, so no memory is shared
// between the sender and the handler.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultInboxSize = 16

var (
	ErrNoEndpoint   = errors.New("no such endpoint")
	ErrNoHandler    = errors.New("no handler for message type")
	ErrEndpointUsed = errors.New("endpoint already registered")
)

// Message is a request delivered to an endpoint.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Respond sends the single reply for a message. Calls after the first are ignored.
// It may be called after the handler returned, from any goroutine.
type Respond func(payload any)

// Handler processes one message. ctx lives as long as the serving endpoint,
// not as long as the caller waits.
type Handler func(ctx context.Context, msg Message, respond Respond)

// Bus routes messages between named endpoints and replies back to callers.
type Bus struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	pending   map[string]*Call
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bus{
		endpoints: make(map[string]*Endpoint),
		pending:   make(map[string]*Call),
		logger:    logger,
	}
}

// Endpoint registers a new named context on the bus.
func (b *Bus) Endpoint(name string) (*Endpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointUsed, name)
	}

	e := &Endpoint{
		name:     name,
		bus:      b,
		inbox:    make(chan Message, defaultInboxSize),
		handlers: make(map[string]Handler),
		logger:   b.logger.With(zap.String("endpoint", name)),
	}
	b.endpoints[name] = e

	return e, nil
}

// Send delivers a message to the endpoint and returns the pending call.
// It blocks only while the endpoint inbox is full.
func (b *Bus) Send(ctx context.Context, to, msgType string, payload any) (*Call, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		raw = data
	}

	b.mu.Lock()
	endpoint, ok := b.endpoints[to]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, to)
	}

	call := &Call{
		ID:   uuid.NewString(),
		To:   to,
		Type: msgType,
		bus:  b,
		done: make(chan struct{}),
	}
	b.pending[call.ID] = call
	b.mu.Unlock()

	msg := Message{ID: call.ID, Type: msgType, Payload: raw}

	select {
	case endpoint.inbox <- msg:
	case <-ctx.Done():
		b.abandon(call.ID)
		return nil, ctx.Err()
	}

	b.logger.Debug("message sent",
		zap.String("id", call.ID),
		zap.String("to", to),
		zap.String("type", msgType),
	)

	return call, nil
}

// Request sends a message and waits for the reply, decoding it into out.
func (b *Bus) Request(ctx context.Context, to, msgType string, payload, out any) error {
	call, err := b.Send(ctx, to, msgType, payload)
	if err != nil {
		return err
	}
	return call.Wait(ctx, out)
}

func (b *Bus) deliver(id string, reply json.RawMessage, err error) {
	b.mu.Lock()
	call, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("dropping reply nobody waits for", zap.String("id", id))
		return
	}

	call.reply = reply
	call.err = err
	close(call.done)
}

func (b *Bus) abandon(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// Call is a message awaiting its reply.
type Call struct {
	ID   string
	To   string
	Type string

	bus   *Bus
	done  chan struct{}
	reply json.RawMessage
	err   error
}

// Done is closed once the reply arrives.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the reply arrives or ctx ends. When ctx ends first the
// call is abandoned and a later reply is dropped.
func (c *Call) Wait(ctx context.Context, out any) error {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.bus.abandon(c.ID)
		return ctx.Err()
	}

	if c.err != nil {
		return c.err
	}

	if out == nil || len(c.reply) == 0 {
		return nil
	}

	if err := json.Unmarshal(c.reply, out); err != nil {
		return fmt.Errorf("decode %s reply: %w", c.Type, err)
	}

	return nil
}
