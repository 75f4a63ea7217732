package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	anthropicProvider "github.com/harunnryd/denrei/internal/classifier/providers/anthropic"
	geminiProvider "github.com/harunnryd/denrei/internal/classifier/providers/gemini"
	openaiProvider "github.com/harunnryd/denrei/internal/classifier/providers/openai"
	"github.com/harunnryd/denrei/internal/config"
	denreiErrors "github.com/harunnryd/denrei/internal/errors"
)

// Router resolves a model name to a configured provider and falls back to the
// configured fallback model on failure. A registry entry with no API key is
// skipped at startup; when no provider ends up registered, every call fails
// with a credentials error so commands park in pending_classification until
// the sweep finds working credentials.
type Router struct {
	cfg       config.ModelsConfig
	providers map[string]Provider // keyed by model name
	byType    map[string]string   // provider type -> first model name
	mu        sync.RWMutex
}

func NewRouter(cfg config.ModelsConfig) (*Router, error) {
	r := &Router{
		cfg:       cfg,
		providers: make(map[string]Provider),
		byType:    make(map[string]string),
	}

	for _, entry := range cfg.Registry {
		provider, err := createProvider(entry)
		if err != nil {
			slog.Warn("Skipping model provider", "provider", entry.Provider, "model", entry.Name, "reason", err)
			continue
		}
		r.providers[entry.Name] = provider
		if _, ok := r.byType[entry.Provider]; !ok {
			r.byType[entry.Provider] = entry.Name
		}
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	return r, nil
}

func createProvider(entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		if entry.APIKey == "" {
			return nil, fmt.Errorf("api key required for openai provider")
		}
		return openaiProvider.New(entry.APIKey, entry.BaseURL), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, fmt.Errorf("api key required for anthropic provider")
		}
		return anthropicProvider.New(entry.APIKey), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, fmt.Errorf("api key required for gemini provider")
		}
		return geminiProvider.New(entry.APIKey)

	default:
		return nil, fmt.Errorf("unknown provider type: %s", entry.Provider)
	}
}

// ModelForProvider returns a registered model served by the named provider
// type, or "" when none is configured.
func (r *Router) ModelForProvider(providerType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[providerType]
}

// Complete routes a completion to the provider serving the model, falling
// back to the configured fallback model once on failure.
func (r *Router) Complete(ctx context.Context, model, system, user string) (string, error) {
	r.mu.RLock()
	registered := len(r.providers)
	provider, exists := r.providers[model]
	r.mu.RUnlock()

	if registered == 0 {
		return "", denreiErrors.Wrap(denreiErrors.ErrClassifierUnavailable, "no provider configured")
	}

	if !exists {
		slog.Warn("Model not registered, trying fallback", "model", model, "fallback", r.cfg.Fallback)
		return r.completeFallback(ctx, system, user, fmt.Errorf("model %s not registered", model))
	}

	out, err := provider.Complete(ctx, model, system, user)
	if err == nil {
		return out, nil
	}

	slog.Warn("Provider request failed", "model", model, "error", err)

	if r.cfg.Fallback == "" || model == r.cfg.Fallback {
		return "", err
	}
	return r.completeFallback(ctx, system, user, err)
}

func (r *Router) completeFallback(ctx context.Context, system, user string, cause error) (string, error) {
	r.mu.RLock()
	fallback, exists := r.providers[r.cfg.Fallback]
	r.mu.RUnlock()

	if !exists {
		return "", cause
	}

	out, err := fallback.Complete(ctx, r.cfg.Fallback, system, user)
	if err != nil {
		return "", err
	}
	slog.Info("Fallback model served request", "model", r.cfg.Fallback)
	return out, nil
}

// Embed routes an embedding request to the configured embedding model.
func (r *Router) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.RLock()
	provider, exists := r.providers[r.cfg.Embedding]
	r.mu.RUnlock()

	if !exists {
		return nil, denreiErrors.NotFound("no embedding-capable model configured")
	}

	return provider.Embed(ctx, r.cfg.Embedding, text)
}
