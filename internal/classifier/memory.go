package classifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harunnryd/denrei/internal/domain"

	"github.com/philippgille/chromem-go"
)

const correctionsCollection = "corrections"

// CorrectionExample is a past human correction retrieved for few-shot hints.
type CorrectionExample struct {
	Text          string
	CorrectedType domain.ActionType
}

// CorrectionMemory indexes accepted reclassifications so the gateway can bias
// future classifications toward how this user actually files things. Best
// effort on both ends: a failed Record never fails the reclassification, and
// a failed Similar never fails a classify call.
type CorrectionMemory struct {
	db       *chromem.DB
	embedder Embedder
}

func NewCorrectionMemory(basePath string, embedder Embedder) (*CorrectionMemory, error) {
	dir := filepath.Join(basePath, "memory")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to init correction memory: %w", err)
	}

	return &CorrectionMemory{db: db, embedder: embedder}, nil
}

// Record indexes one transition under its command text.
func (m *CorrectionMemory) Record(ctx context.Context, tr *domain.ActionTransition) error {
	vector, err := m.embedder.Embed(ctx, tr.CommandText)
	if err != nil {
		return fmt.Errorf("embed correction: %w", err)
	}

	col, err := m.db.GetOrCreateCollection(correctionsCollection, nil, nil)
	if err != nil {
		return err
	}

	return col.AddDocuments(ctx, []chromem.Document{
		{
			ID:        tr.ID,
			Embedding: vector,
			Content:   tr.CommandText,
			Metadata: map[string]string{
				"user_id":       tr.UserID,
				"original_type": string(tr.OriginalType),
				"new_type":      string(tr.NewType),
			},
		},
	}, 1)
}

// Similar returns up to k corrections closest to text.
func (m *CorrectionMemory) Similar(ctx context.Context, text string, k int) ([]CorrectionExample, error) {
	col := m.db.GetCollection(correctionsCollection, nil)
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := col.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]CorrectionExample, 0, len(results))
	for _, res := range results {
		newType, err := domain.ParseActionType(res.Metadata["new_type"])
		if err != nil {
			continue
		}
		out = append(out, CorrectionExample{Text: res.Content, CorrectedType: newType})
	}
	return out, nil
}
