package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/denrei/internal/domain"

	"github.com/natefinch/atomic"
)

// Store is the file-backed persistence layer: two JSON collections keyed by
// ID (commands, actions) and an append-only JSONL transition log. A flock on
// the data directory keeps it single-writer across processes; the mutex keeps
// it single-writer across goroutines. Mutating methods persist before
// returning, and readers get copies so a caller can never bypass the
// conditional-update discipline on actions.
type Store struct {
	basePath string
	mu       sync.Mutex
	commands map[string]*domain.Command
	actions  map[string]*domain.Action
	fileLock *FileLock
}

type RuntimeConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func Open(basePath string, runtimeCfg RuntimeConfig) (*Store, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".denrei", "data")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", basePath, err)
	}

	lockCfg := DefaultFileLockConfig()
	if runtimeCfg.LockTimeout > 0 {
		lockCfg.LockTimeout = runtimeCfg.LockTimeout
	}
	if runtimeCfg.LockRetry > 0 {
		lockCfg.LockRetry = runtimeCfg.LockRetry
	}
	if runtimeCfg.LockMaxRetry > 0 {
		lockCfg.LockMaxRetry = runtimeCfg.LockMaxRetry
	}

	fileLock, err := NewFileLock(basePath, lockCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire store lock: %w", err)
	}

	s := &Store{
		basePath: basePath,
		commands: make(map[string]*domain.Command),
		actions:  make(map[string]*domain.Action),
		fileLock: fileLock,
	}

	if err := s.load(); err != nil {
		fileLock.Unlock()
		return nil, err
	}

	slog.Info("Store opened", "path", basePath, "commands", len(s.commands), "actions", len(s.actions))
	return s, nil
}

func (s *Store) Close() error {
	if s.fileLock != nil {
		return s.fileLock.Unlock()
	}
	return nil
}

func (s *Store) commandsPath() string {
	return filepath.Join(s.basePath, "commands.json")
}

func (s *Store) actionsPath() string {
	return filepath.Join(s.basePath, "actions.json")
}

func (s *Store) transitionsPath() string {
	return filepath.Join(s.basePath, "transitions.jsonl")
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loadCollection(s.commandsPath(), &s.commands); err != nil {
		return fmt.Errorf("load commands: %w", err)
	}
	if err := loadCollection(s.actionsPath(), &s.actions); err != nil {
		return fmt.Errorf("load actions: %w", err)
	}
	return nil
}

func loadCollection[T any](path string, out *map[string]*T) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// saveCommands and saveActions are called with the mutex held.
func (s *Store) saveCommands() error {
	return saveCollection(s.commandsPath(), s.commands)
}

func (s *Store) saveActions() error {
	return saveCollection(s.actionsPath(), s.actions)
}

func saveCollection[T any](path string, data map[string]*T) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}
