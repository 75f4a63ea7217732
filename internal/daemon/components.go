package daemon

import (
	"context"

	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/ingress"
	"github.com/harunnryd/denrei/internal/store"
)

// StoreComponent owns the store's lifecycle inside the daemon. The store is
// opened before the daemon starts so the wiring can use it; this component
// only closes it on shutdown.
type StoreComponent struct {
	store *store.Store
}

func NewStoreComponent(st *store.Store) *StoreComponent {
	return &StoreComponent{store: st}
}

func (c *StoreComponent) Name() string { return "store" }

func (c *StoreComponent) Dependencies() []string { return nil }

func (c *StoreComponent) Init(ctx context.Context) error { return nil }

func (c *StoreComponent) Start(ctx context.Context) error { return nil }

func (c *StoreComponent) Stop(ctx context.Context) error {
	return c.store.Close()
}

func (c *StoreComponent) Health(ctx context.Context) error {
	if c.store == nil {
		return errors.Internal("store not opened")
	}
	return nil
}

// HTTPComponent adapts the HTTP server to the component lifecycle.
type HTTPComponent struct {
	server *ingress.HTTPServer
}

func NewHTTPComponent(server *ingress.HTTPServer) *HTTPComponent {
	return &HTTPComponent{server: server}
}

func (c *HTTPComponent) Name() string { return "http" }

func (c *HTTPComponent) Dependencies() []string { return []string{"store"} }

func (c *HTTPComponent) Init(ctx context.Context) error { return nil }

func (c *HTTPComponent) Start(ctx context.Context) error {
	c.server.Start()
	return nil
}

func (c *HTTPComponent) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

func (c *HTTPComponent) Health(ctx context.Context) error {
	return nil
}

// TelegramComponent adapts the Telegram long-poll adapter.
type TelegramComponent struct {
	adapter *ingress.TelegramAdapter
}

func NewTelegramComponent(adapter *ingress.TelegramAdapter) *TelegramComponent {
	return &TelegramComponent{adapter: adapter}
}

func (c *TelegramComponent) Name() string { return c.adapter.Name() }

func (c *TelegramComponent) Dependencies() []string { return []string{"store"} }

func (c *TelegramComponent) Init(ctx context.Context) error { return nil }

func (c *TelegramComponent) Start(ctx context.Context) error {
	return c.adapter.Start(ctx)
}

func (c *TelegramComponent) Stop(ctx context.Context) error {
	return c.adapter.Stop(ctx)
}

func (c *TelegramComponent) Health(ctx context.Context) error {
	return c.adapter.Health(ctx)
}
