package lifecycle

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/harunnryd/denrei/internal/bus"
	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"
)

type fakePublisher struct {
	events []bus.ActionCreated
	err    error
}

func (f *fakePublisher) PublishActionCreated(ctx context.Context, evt bus.ActionCreated) error {
	f.events = append(f.events, evt)
	return f.err
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

func testCommand(st *store.Store, t *testing.T) *domain.Command {
	t.Helper()
	cmd := &domain.Command{
		ID:         domain.CommandID(domain.SourceWhatsAppText, "wamid.1"),
		UserID:     "user-1",
		Source:     domain.SourceWhatsAppText,
		ExternalID: "wamid.1",
		Text:       "buy milk tomorrow",
		ReceivedAt: time.Now().UTC(),
		Status:     domain.CommandReceived,
	}
	if err := st.CreateCommand(cmd); err != nil {
		t.Fatalf("failed to create command: %v", err)
	}
	return cmd
}

func TestCreateFromClassificationGating(t *testing.T) {
	st := testStore(t)
	pub := &fakePublisher{}
	m := NewManager(st, pub, nil, 0.75)
	cmd := testCommand(st, t)

	highID, err := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeTodo, Confidence: 0.92, Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	high, _ := st.GetAction(highID)
	if high.Status != domain.ActionPending {
		t.Errorf("high confidence should be pending, got %v", high.Status)
	}

	lowID, err := m.CreateFromClassification(context.Background(),
		&domain.Command{ID: "cmd-2", UserID: "user-1", ReceivedAt: time.Now()},
		&domain.Classification{Type: domain.TypeNote, Confidence: 0.4, Title: "Maybe"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	low, _ := st.GetAction(lowID)
	if low.Status != domain.ActionAwaitingApproval {
		t.Errorf("low confidence should await approval, got %v", low.Status)
	}

	if len(pub.events) != 2 {
		t.Errorf("expected 2 emitted events, got %d", len(pub.events))
	}
	if high.PublishedAt == nil {
		t.Error("successful emit must be recorded")
	}
}

func TestCreateFromClassificationEmitFailure(t *testing.T) {
	st := testStore(t)
	pub := &fakePublisher{err: stderrors.New("bus down")}
	m := NewManager(st, pub, nil, 0.75)
	cmd := testCommand(st, t)

	id, err := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeTodo, Confidence: 0.9, Title: "Buy milk"})
	if err != nil {
		t.Fatalf("emit failure must not fail creation: %v", err)
	}

	action, getErr := st.GetAction(id)
	if getErr != nil {
		t.Fatalf("action not persisted: %v", getErr)
	}
	if action.PublishedAt != nil {
		t.Error("failed emit must leave the action unpublished")
	}

	// The reconciler re-emits from persisted state once the bus recovers
	pub.err = nil
	m.Reconcile(context.Background())

	action, _ = st.GetAction(id)
	if action.PublishedAt == nil {
		t.Error("reconcile should have re-emitted and marked published")
	}
	if len(pub.events) != 2 {
		t.Errorf("expected original emit plus re-emit, got %d", len(pub.events))
	}
}

func TestApprove(t *testing.T) {
	st := testStore(t)
	m := NewManager(st, &fakePublisher{}, nil, 0.75)
	cmd := testCommand(st, t)

	id, err := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeTodo, Confidence: 0.5, Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := m.Approve(context.Background(), id, "someone-else"); !errors.IsCategory(err, errors.ErrNotFound) {
		t.Errorf("foreign approval must read as not found, got %v", err)
	}

	if err := m.Approve(context.Background(), id, "user-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	action, _ := st.GetAction(id)
	if action.Status != domain.ActionProcessing {
		t.Errorf("status = %v", action.Status)
	}

	if err := m.Approve(context.Background(), id, "user-1"); !errors.IsCategory(err, errors.ErrInvalidStatus) {
		t.Errorf("double approve must fail, got %v", err)
	}
}

func TestReconcileResumesActionCreation(t *testing.T) {
	st := testStore(t)
	pub := &fakePublisher{}
	m := NewManager(st, pub, nil, 0.75)

	// A crash after the classified status write but before the action create
	// leaves a classified command with a stored classification and no action.
	cmd := testCommand(st, t)
	cmd.Status = domain.CommandClassified
	cmd.Classification = &domain.Classification{Type: domain.TypeTodo, Confidence: 0.9, Title: "Buy milk"}
	if err := st.UpdateCommand(cmd); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	m.Reconcile(context.Background())

	got, err := st.GetCommand(cmd.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ActionID == "" {
		t.Fatal("reconcile should have created the missing action and linked it")
	}

	action, err := st.GetAction(got.ActionID)
	if err != nil {
		t.Fatalf("action not persisted: %v", err)
	}
	if action.Type != domain.TypeTodo || action.Status != domain.ActionPending {
		t.Errorf("action = %+v", action)
	}
	if len(pub.events) != 1 {
		t.Errorf("expected one action.created emission, got %d", len(pub.events))
	}

	// A second pass finds the back-link in place and creates nothing new.
	m.Reconcile(context.Background())

	actions := st.ListActionsByUser("user-1", "")
	if len(actions) != 1 {
		t.Errorf("reconcile must be idempotent, got %d actions", len(actions))
	}
}

func TestReconcileRepairsBackLink(t *testing.T) {
	st := testStore(t)
	m := NewManager(st, &fakePublisher{}, nil, 0.75)

	cmd := testCommand(st, t)
	cmd.Status = domain.CommandClassified
	if err := st.UpdateCommand(cmd); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	action := &domain.Action{
		ID: "act-orphan", UserID: "user-1", CommandID: cmd.ID,
		Type: domain.TypeTodo, Status: domain.ActionPending, CreatedAt: time.Now(),
	}
	if err := st.CreateAction(action); err != nil {
		t.Fatalf("create action failed: %v", err)
	}
	if err := st.MarkActionPublished(action.ID); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}

	m.Reconcile(context.Background())

	got, err := st.GetCommand(cmd.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ActionID != "act-orphan" {
		t.Errorf("back-link not repaired: %q", got.ActionID)
	}
}
