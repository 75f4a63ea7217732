package store

import (
	"sort"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

// CreateCommand inserts a new command. The command ID is derived from the
// natural key, so a duplicate delivery surfaces as ErrConflict here and the
// caller short-circuits to the existing record. This is the idempotency
// ledger: at most one command per (source, externalID), for all time.
func (s *Store) CreateCommand(cmd *domain.Command) error {
	if cmd == nil || cmd.ID == "" {
		return errors.Validation("command is nil or missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commands[cmd.ID]; exists {
		return errors.Conflict("command already exists: " + cmd.ID)
	}

	c := *cmd
	c.UpdatedAt = time.Now()
	s.commands[cmd.ID] = &c

	if err := s.saveCommands(); err != nil {
		delete(s.commands, cmd.ID)
		return errors.Persistence(err, "save commands")
	}
	cmd.UpdatedAt = c.UpdatedAt
	return nil
}

// GetCommand returns a copy of the command.
func (s *Store) GetCommand(id string) (*domain.Command, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commands[id]
	if !ok {
		return nil, errors.NotFound("command not found: " + id)
	}
	out := *c
	return &out, nil
}

// GetCommandByKey looks a command up by its natural key.
func (s *Store) GetCommandByKey(source domain.SourceType, externalID string) (*domain.Command, error) {
	return s.GetCommand(domain.CommandID(source, externalID))
}

// UpdateCommand overwrites a command record and bumps UpdatedAt. Commands
// have a single logical writer per invocation (admission or the retry sweep),
// so a whole-record write is safe; actions go through CAS methods instead.
func (s *Store) UpdateCommand(cmd *domain.Command) error {
	if cmd == nil || cmd.ID == "" {
		return errors.Validation("command is nil or missing id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.commands[cmd.ID]
	if !ok {
		return errors.NotFound("command not found: " + cmd.ID)
	}

	c := *cmd
	c.UpdatedAt = time.Now()
	s.commands[cmd.ID] = &c

	if err := s.saveCommands(); err != nil {
		s.commands[cmd.ID] = prev
		return errors.Persistence(err, "save commands")
	}
	cmd.UpdatedAt = c.UpdatedAt
	return nil
}

// ListCommandsByStatus returns copies of commands in the given status whose
// UpdatedAt is older than updatedBefore, oldest first. This serves the retry
// sweep's (status, updatedAt) scan.
func (s *Store) ListCommandsByStatus(status domain.CommandStatus, updatedBefore time.Time) []*domain.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Command, 0)
	for _, c := range s.commands {
		if c.Status != status {
			continue
		}
		if !updatedBefore.IsZero() && !c.UpdatedAt.Before(updatedBefore) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}
