// Package host runs the isolated contexts of the pipeline inside one process.
// Contexts share nothing but the bus.
package host

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/wingman/internal/bus"
)

const (
	ContextPage       = "page"
	ContextBackground = "background"
	ContextPopup      = "popup"
)

// Service installs message handlers on the endpoint of its context.
type Service interface {
	Register(e *bus.Endpoint)
}

// Drainer is a Service whose handlers start work that outlives the handler
// call. Wait is called once the contexts stopped dispatching.
type Drainer interface {
	Wait()
}

type Host struct {
	bus       *bus.Bus
	logger    *zap.Logger
	endpoints []*bus.Endpoint
	drainers  []Drainer
}

func New(b *bus.Bus, log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}

	return &Host{bus: b, logger: log}
}

// Bus returns the bus connecting the hosted contexts.
func (h *Host) Bus() *bus.Bus {
	return h.bus
}

// Context registers a context that answers messages with the given services.
func (h *Host) Context(name string, services ...Service) error {
	endpoint, err := h.bus.Endpoint(name)
	if err != nil {
		return fmt.Errorf("registering context %s: %w", name, err)
	}

	for _, svc := range services {
		svc.Register(endpoint)
		if d, ok := svc.(Drainer); ok {
			h.drainers = append(h.drainers, d)
		}
	}

	h.endpoints = append(h.endpoints, endpoint)

	return nil
}

// Run serves every registered context while main runs in its own context.
// The contexts stop once main returns, then Run waits for work their
// handlers started. main's error is returned.
func (h *Host) Run(ctx context.Context, main func(ctx context.Context) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	serveCtx, stop := context.WithCancel(gCtx)
	defer stop()

	for _, endpoint := range h.endpoints {
		g.Go(func() error {
			err := endpoint.Serve(serveCtx)
			if errors.Is(err, context.Canceled) && serveCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("context %s: %w", endpoint.Name(), err)
		})
	}

	g.Go(func() error {
		defer stop()

		h.logger.Debug("contexts started", zap.Int("count", len(h.endpoints)))
		return main(gCtx)
	})

	err := g.Wait()

	for _, d := range h.drainers {
		d.Wait()
	}
	h.logger.Debug("contexts drained", zap.Int("count", len(h.drainers)))

	return err
}
