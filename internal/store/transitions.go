package store

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

// AppendTransition durably appends an audit record to the transition log.
// The file is opened with O_SYNC so the write-ahead ordering holds: once this
// returns, the record survives a crash that happens before the corresponding
// action mutation.
func (s *Store) AppendTransition(tr *domain.ActionTransition) error {
	if tr == nil || tr.ID == "" {
		return errors.Validation("transition is nil or missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(tr)
	if err != nil {
		return errors.Persistence(err, "marshal transition")
	}
	line = append(line, '\n')

	f, err := os.OpenFile(s.transitionsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0644)
	if err != nil {
		return errors.Persistence(err, "open transition log")
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return errors.Persistence(err, "append transition")
	}
	return nil
}

// ListTransitions returns transitions for an action in append order. An empty
// actionID returns the whole log.
func (s *Store) ListTransitions(actionID string) ([]domain.ActionTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.transitionsPath())
	if os.IsNotExist(err) {
		return []domain.ActionTransition{}, nil
	}
	if err != nil {
		return nil, errors.Persistence(err, "read transition log")
	}

	out := make([]domain.ActionTransition, 0)
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var tr domain.ActionTransition
		if err := json.Unmarshal([]byte(line), &tr); err != nil {
			return nil, errors.Persistence(err, "parse transition log")
		}
		if actionID == "" || tr.ActionID == actionID {
			out = append(out, tr)
		}
	}
	return out, nil
}
