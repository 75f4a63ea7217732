package retry

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/denrei/internal/config"
	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"
)

type fakeClassifyLinker struct {
	st    *store.Store
	errs  map[string]error
	calls []string
}

func (f *fakeClassifyLinker) ClassifyAndLink(ctx context.Context, cmd *domain.Command) error {
	f.calls = append(f.calls, cmd.ID)
	if err, ok := f.errs[cmd.ID]; ok {
		return err
	}
	cmd.Status = domain.CommandClassified
	return f.st.UpdateCommand(cmd)
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir(), store.RuntimeConfig{})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func pendingCommand(t *testing.T, st *store.Store, externalID string, attempts int) *domain.Command {
	t.Helper()
	cmd := &domain.Command{
		ID:           domain.CommandID(domain.SourceWhatsAppText, externalID),
		UserID:       "user-1",
		Source:       domain.SourceWhatsAppText,
		ExternalID:   externalID,
		Text:         "buy milk",
		ReceivedAt:   time.Now().UTC(),
		Status:       domain.CommandPendingClassification,
		AttemptCount: attempts,
	}
	if err := st.CreateCommand(cmd); err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	return cmd
}

func testScheduler(t *testing.T, st *store.Store, classify ClassifyLinker) *Scheduler {
	t.Helper()
	s, err := NewScheduler(st, classify, nil, config.RetryConfig{
		Schedule:    "@every 1m",
		MaxAttempts: 3,
		Cooldown:    "1ms",
	})
	if err != nil {
		t.Fatalf("failed to build scheduler: %v", err)
	}
	return s
}

func TestRetryPendingSuccess(t *testing.T) {
	st := testStore(t)
	classify := &fakeClassifyLinker{st: st}
	sched := testScheduler(t, st, classify)

	cmd := pendingCommand(t, st, "m1", 0)
	time.Sleep(5 * time.Millisecond)

	summary := sched.RetryPending(context.Background())
	if summary.Attempted != 1 || summary.Succeeded != 1 || summary.PermanentlyFailed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	got, err := st.GetCommand(cmd.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.CommandClassified {
		t.Errorf("status = %v", got.Status)
	}
	if got.AttemptCount != 1 {
		t.Errorf("attempt count = %d", got.AttemptCount)
	}
}

func TestRetryPendingCooldown(t *testing.T) {
	st := testStore(t)
	classify := &fakeClassifyLinker{st: st}

	sched, err := NewScheduler(st, classify, nil, config.RetryConfig{
		Schedule: "@every 1m", MaxAttempts: 3, Cooldown: "5m",
	})
	if err != nil {
		t.Fatalf("failed to build scheduler: %v", err)
	}

	pendingCommand(t, st, "m1", 0)

	summary := sched.RetryPending(context.Background())
	if summary.Attempted != 0 {
		t.Fatalf("fresh command must wait out the cooldown, summary = %+v", summary)
	}
	if len(classify.calls) != 0 {
		t.Errorf("classifier called during cooldown: %v", classify.calls)
	}
}

func TestRetryPendingBudgetExhaustion(t *testing.T) {
	st := testStore(t)

	cmd := pendingCommand(t, st, "m1", 2)
	classify := &fakeClassifyLinker{
		st:   st,
		errs: map[string]error{cmd.ID: errors.Wrap(errors.ErrClassifierTransient, "provider error")},
	}
	sched := testScheduler(t, st, classify)
	time.Sleep(5 * time.Millisecond)

	summary := sched.RetryPending(context.Background())
	if summary.Attempted != 1 || summary.PermanentlyFailed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	got, err := st.GetCommand(cmd.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != domain.CommandFailed {
		t.Errorf("expected failed after budget exhaustion, got %v", got.Status)
	}
	if got.AttemptCount != 3 {
		t.Errorf("attempt count = %d", got.AttemptCount)
	}
}

func TestRetryPendingKeepsPendingUnderBudget(t *testing.T) {
	st := testStore(t)

	cmd := pendingCommand(t, st, "m1", 0)
	classify := &fakeClassifyLinker{
		st:   st,
		errs: map[string]error{cmd.ID: errors.Wrap(errors.ErrClassifierTransient, "provider error")},
	}
	sched := testScheduler(t, st, classify)
	time.Sleep(5 * time.Millisecond)

	summary := sched.RetryPending(context.Background())
	if summary.Attempted != 1 || summary.PermanentlyFailed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	got, _ := st.GetCommand(cmd.ID)
	if got.Status != domain.CommandPendingClassification {
		t.Errorf("command must stay pending under budget, got %v", got.Status)
	}
	if got.AttemptCount != 1 {
		t.Errorf("attempt count = %d", got.AttemptCount)
	}
}

func TestRetryPendingFaultIsolation(t *testing.T) {
	st := testStore(t)

	bad := pendingCommand(t, st, "m1", 0)
	good := pendingCommand(t, st, "m2", 0)
	classify := &fakeClassifyLinker{
		st:   st,
		errs: map[string]error{bad.ID: errors.Wrap(errors.ErrClassifierTransient, "provider error")},
	}
	sched := testScheduler(t, st, classify)
	time.Sleep(5 * time.Millisecond)

	summary := sched.RetryPending(context.Background())
	if summary.Attempted != 2 || summary.Succeeded != 1 {
		t.Fatalf("one failure must not stop the sweep, summary = %+v", summary)
	}

	got, _ := st.GetCommand(good.ID)
	if got.Status != domain.CommandClassified {
		t.Errorf("good command should have classified, got %v", got.Status)
	}
}
