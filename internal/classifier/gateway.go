package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	denreiErrors "github.com/harunnryd/denrei/internal/errors"

	"github.com/cenkalti/backoff/v4"
)

const systemPrompt = `You classify short natural-language commands into exactly one intent.

Valid types: todo, research, note, link, calendar, reminder, unclassified.

Rules:
- "todo": something the user wants to do or buy.
- "research": a question or topic to investigate.
- "note": a thought or fact to keep.
- "link": a URL to save.
- "calendar": an event at a specific date or time.
- "reminder": something to be reminded about.
- If unsure, answer "unclassified" with low confidence instead of guessing.

Return only a JSON object:
{"type": "...", "confidence": 0.0-1.0, "title": "short title", "reasoning": "one sentence"}`

// Memory supplies past human corrections as few-shot hints. Optional.
type Memory interface {
	Similar(ctx context.Context, text string, k int) ([]CorrectionExample, error)
}

// Gateway wraps the model call into the classify contract: bounded timeout,
// bounded immediate retry on transient failures, structural validation, and
// taxonomy-mapped errors.
type Gateway struct {
	router     Completer
	memory     Memory
	model      string
	timeout    time.Duration
	maxRetries int
	topK       int
}

type GatewayConfig struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
	MemoryTopK int
}

func NewGateway(router Completer, memory Memory, cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MemoryTopK <= 0 {
		cfg.MemoryTopK = 3
	}
	return &Gateway{
		router:     router,
		memory:     memory,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		topK:       cfg.MemoryTopK,
	}
}

// Classify runs text through the model and returns a validated
// classification. Unclassified with low confidence is a valid result.
func (g *Gateway) Classify(ctx context.Context, userID, text string) (*domain.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, denreiErrors.Validation("text is empty")
	}

	model := g.model
	if hint := ExtractProviderHint(text); hint != "" {
		if hinted := g.router.ModelForProvider(hint); hinted != "" {
			slog.Debug("Provider hint applied", "provider", hint, "model", hinted)
			model = hinted
		}
	}

	system := g.buildSystemPrompt(ctx, text)

	var result *domain.Classification
	operation := func() error {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		raw, err := g.router.Complete(cctx, model, system, text)
		if err != nil {
			mapped := denreiErrors.MapClassifierError(err)
			if !denreiErrors.IsRetryable(mapped) {
				return backoff.Permanent(mapped)
			}
			return mapped
		}

		cls, err := parseClassification(raw)
		if err != nil {
			// Structural failures retry like provider errors
			return denreiErrors.MapClassifierError(err)
		}

		result = cls
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(g.maxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	if result.Title == "" {
		result.Title = defaultTitle(text)
	}

	slog.Info("Command classified", "type", result.Type, "confidence", result.Confidence, "user", userID)
	return result, nil
}

func (g *Gateway) buildSystemPrompt(ctx context.Context, text string) string {
	if g.memory == nil {
		return systemPrompt
	}

	examples, err := g.memory.Similar(ctx, text, g.topK)
	if err != nil {
		slog.Debug("Correction memory lookup failed", "error", err)
		return systemPrompt
	}
	if len(examples) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nThe user previously corrected similar commands:\n")
	for _, ex := range examples {
		fmt.Fprintf(&b, "- %q => %s\n", ex.Text, ex.CorrectedType)
	}
	return b.String()
}

func defaultTitle(text string) string {
	title := strings.TrimSpace(text)
	if len(title) > 60 {
		title = strings.TrimSpace(title[:60])
	}
	return title
}
