package classifier

import (
	"context"
)

// Provider is a single model backend capable of structured completions.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model, system, user string) (string, error)
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Completer is what the gateway needs from the routing layer.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
	ModelForProvider(provider string) string
}

// Embedder produces embeddings for the correction memory.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
