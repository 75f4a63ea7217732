package retry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/denrei/internal/config"
	"github.com/harunnryd/denrei/internal/domain"
	denreiErrors "github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"

	"github.com/robfig/cron/v3"
)

// ClassifyLinker is the shared classify-and-link path from admission.
type ClassifyLinker interface {
	ClassifyAndLink(ctx context.Context, cmd *domain.Command) error
}

// Reconciler repairs crash gaps alongside the sweep.
type Reconciler interface {
	Reconcile(ctx context.Context)
}

// Summary reports one sweep's outcome.
type Summary struct {
	Attempted         int `json:"attempted"`
	Succeeded         int `json:"succeeded"`
	PermanentlyFailed int `json:"permanently_failed"`
}

// Scheduler periodically retries commands parked in pending_classification
// and gives up after a bounded attempt budget. Runs as a daemon component.
type Scheduler struct {
	store      *store.Store
	classify   ClassifyLinker
	reconciler Reconciler

	schedule    cron.Schedule
	cooldown    time.Duration
	maxAttempts int

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	ticker  *time.Ticker
	nextRun time.Time
}

func NewScheduler(st *store.Store, classify ClassifyLinker, reconciler Reconciler, cfg config.RetryConfig) (*Scheduler, error) {
	spec := cfg.Schedule
	if spec == "" {
		spec = config.DefaultRetrySchedule
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid retry schedule %q: %w", spec, err)
	}

	cooldown, err := config.DurationOrDefault(cfg.Cooldown, config.DefaultRetryCooldown)
	if err != nil {
		return nil, fmt.Errorf("parse retry cooldown: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultRetryMaxAttempts
	}

	return &Scheduler{
		store:       st,
		classify:    classify,
		reconciler:  reconciler,
		schedule:    schedule,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
	}, nil
}

func (s *Scheduler) Name() string {
	return "retry-scheduler"
}

func (s *Scheduler) Dependencies() []string {
	return []string{"store"}
}

func (s *Scheduler) Init(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.nextRun = s.schedule.Next(time.Now())
	slog.Info("Retry scheduler initialized",
		"cooldown", s.cooldown, "max_attempts", s.maxAttempts)
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.ticker = time.NewTicker(time.Second)
	go s.run()

	slog.Info("Retry scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.cancel()

	slog.Info("Retry scheduler stopped")
	return nil
}

func (s *Scheduler) Health(ctx context.Context) error {
	if s.ctx == nil {
		return denreiErrors.Internal("retry scheduler not initialized")
	}
	if !s.IsRunning() {
		return denreiErrors.Internal("retry scheduler not running")
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.mu.Lock()
			due := !time.Now().Before(s.nextRun)
			if due {
				s.nextRun = s.schedule.Next(time.Now())
			}
			s.mu.Unlock()

			if due {
				summary := s.RetryPending(s.ctx)
				if summary.Attempted > 0 {
					slog.Info("Retry sweep finished",
						"attempted", summary.Attempted,
						"succeeded", summary.Succeeded,
						"permanently_failed", summary.PermanentlyFailed)
				}
				if s.reconciler != nil {
					s.reconciler.Reconcile(s.ctx)
				}
			}
		case <-s.ctx.Done():
			slog.Info("Retry scheduler run loop stopped")
			return
		}
	}
}

// RetryPending sweeps pending_classification commands once. A command is
// eligible when its last attempt is older than the cooldown. Each command
// gets its attempt recorded before classification runs, so a crash mid-sweep
// still consumes budget. One command failing never stops the sweep.
func (s *Scheduler) RetryPending(ctx context.Context) Summary {
	var summary Summary

	cutoff := time.Now().Add(-s.cooldown)
	eligible := s.store.ListCommandsByStatus(domain.CommandPendingClassification, cutoff)

	for _, cmd := range eligible {
		select {
		case <-ctx.Done():
			return summary
		default:
		}

		summary.Attempted++

		cmd.AttemptCount++
		if err := s.store.UpdateCommand(cmd); err != nil {
			slog.Error("Failed to record retry attempt", "command", cmd.ID, "error", err)
			continue
		}

		err := s.classify.ClassifyAndLink(ctx, cmd)
		if err == nil && cmd.Status == domain.CommandClassified {
			summary.Succeeded++
			continue
		}

		if err != nil {
			slog.Warn("Retry attempt failed",
				"command", cmd.ID, "attempt", cmd.AttemptCount,
				"category", denreiErrors.Category(err), "error", err)
		}

		// A still-pending command (credentials outage) consumes budget too.
		if cmd.AttemptCount >= s.maxAttempts {
			cmd.Status = domain.CommandFailed
			if uerr := s.store.UpdateCommand(cmd); uerr != nil {
				slog.Error("Failed to mark command failed", "command", cmd.ID, "error", uerr)
				continue
			}
			summary.PermanentlyFailed++
			slog.Error("Retry budget exhausted, command failed",
				"command", cmd.ID, "attempts", cmd.AttemptCount)
		}
	}

	return summary
}
