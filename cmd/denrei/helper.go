package main

import (
	"fmt"

	"github.com/harunnryd/denrei/internal/admission"
	"github.com/harunnryd/denrei/internal/bus"
	"github.com/harunnryd/denrei/internal/classifier"
	"github.com/harunnryd/denrei/internal/config"
	"github.com/harunnryd/denrei/internal/lifecycle"
	"github.com/harunnryd/denrei/internal/retry"
	"github.com/harunnryd/denrei/internal/store"
)

// runtime holds the wired pipeline shared by the daemon and one-shot commands.
type runtime struct {
	store     *store.Store
	bus       *bus.Bus
	lifecycle *lifecycle.Manager
	admission *admission.Service
	retry     *retry.Scheduler
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	lockTimeout, err := config.DurationOrDefault(cfg.Store.LockTimeout, config.DefaultStoreLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse store lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(cfg.Store.LockRetry, config.DefaultStoreLockRetry)
	if err != nil {
		return nil, fmt.Errorf("parse store lock retry: %w", err)
	}

	st, err := store.Open(cfg.Store.Path, store.RuntimeConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: cfg.Store.LockMaxRetry,
	})
	if err != nil {
		return nil, err
	}

	router, err := classifier.NewRouter(cfg.Models)
	if err != nil {
		st.Close()
		return nil, err
	}

	var memory classifier.Memory
	var corrections lifecycle.CorrectionRecorder
	if cfg.Classifier.Memory.Enabled {
		cm, err := classifier.NewCorrectionMemory(cfg.Store.Path, router)
		if err != nil {
			st.Close()
			return nil, err
		}
		memory = cm
		corrections = cm
	}

	classifierTimeout, err := config.DurationOrDefault(cfg.Classifier.Timeout, config.DefaultClassifierTimeout)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("parse classifier timeout: %w", err)
	}

	gateway := classifier.NewGateway(router, memory, classifier.GatewayConfig{
		Model:      cfg.Models.Default,
		Timeout:    classifierTimeout,
		MaxRetries: cfg.Classifier.MaxRetries,
		MemoryTopK: cfg.Classifier.Memory.TopK,
	})

	eventBus := bus.New()
	if err := registerNotifiers(cfg, eventBus); err != nil {
		st.Close()
		return nil, err
	}

	lifecycleMgr := lifecycle.NewManager(st, eventBus, corrections, cfg.Lifecycle.AutoThreshold)
	admissionSvc := admission.New(st, gateway, lifecycleMgr)

	retrySched, err := retry.NewScheduler(st, admissionSvc, lifecycleMgr, cfg.Retry)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &runtime{
		store:     st,
		bus:       eventBus,
		lifecycle: lifecycleMgr,
		admission: admissionSvc,
		retry:     retrySched,
	}, nil
}

func registerNotifiers(cfg *config.Config, eventBus *bus.Bus) error {
	if cfg.Adapters.Telegram.Enabled && cfg.Adapters.Telegram.BotToken != "" {
		sender, err := bus.NewTelegramSender(cfg.Adapters.Telegram.BotToken)
		if err != nil {
			return err
		}
		if err := eventBus.Register(bus.NewApprovalNotifier(sender, cfg.Lifecycle.AutoThreshold)); err != nil {
			return err
		}
	}

	if cfg.Adapters.Slack.Enabled && cfg.Adapters.Slack.BotToken != "" {
		sender := bus.NewSlackSender(cfg.Adapters.Slack.BotToken, cfg.Adapters.Slack.Channel)
		if err := eventBus.Register(bus.NewApprovalNotifier(sender, cfg.Lifecycle.AutoThreshold)); err != nil {
			return err
		}
	}

	return nil
}
