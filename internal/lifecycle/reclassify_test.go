package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
)

type recordingCorrections struct {
	recorded []*domain.ActionTransition
}

func (r *recordingCorrections) Record(ctx context.Context, tr *domain.ActionTransition) error {
	r.recorded = append(r.recorded, tr)
	return nil
}

func TestChangeType(t *testing.T) {
	st := testStore(t)
	corrections := &recordingCorrections{}
	m := NewManager(st, &fakePublisher{}, corrections, 0.75)
	cmd := testCommand(st, t)

	id, err := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeNote, Confidence: 0.6, Title: "Call mom"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tr, err := m.ChangeType(context.Background(), id, "user-1", domain.TypeReminder)
	if err != nil {
		t.Fatalf("change type failed: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a transition record")
	}
	if tr.OriginalType != domain.TypeNote || tr.NewType != domain.TypeReminder {
		t.Errorf("transition = %+v", tr)
	}
	if tr.CommandText != "buy milk tomorrow" {
		t.Errorf("transition must carry the command text, got %q", tr.CommandText)
	}

	action, _ := st.GetAction(id)
	if action.Type != domain.TypeReminder {
		t.Errorf("type = %v", action.Type)
	}

	log, err := st.ListTransitions(id)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(log) != 1 || log[0].ID != tr.ID {
		t.Errorf("audit log = %+v", log)
	}

	if len(corrections.recorded) != 1 {
		t.Errorf("correction memory not fed, got %d", len(corrections.recorded))
	}
}

func TestChangeTypeNoOp(t *testing.T) {
	st := testStore(t)
	m := NewManager(st, &fakePublisher{}, nil, 0.75)
	cmd := testCommand(st, t)

	id, _ := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeNote, Confidence: 0.6, Title: "x"})

	tr, err := m.ChangeType(context.Background(), id, "user-1", domain.TypeNote)
	if err != nil {
		t.Fatalf("same-type change must be a no-op: %v", err)
	}
	if tr != nil {
		t.Error("no-op must not write an audit record")
	}

	log, _ := st.ListTransitions(id)
	if len(log) != 0 {
		t.Errorf("audit log should be empty, got %d", len(log))
	}
}

func TestChangeTypeMissingCommand(t *testing.T) {
	st := testStore(t)
	m := NewManager(st, &fakePublisher{}, nil, 0.75)

	action := &domain.Action{
		ID: "act-1", UserID: "user-1", CommandID: "gone",
		Type: domain.TypeNote, Status: domain.ActionPending, CreatedAt: time.Now(),
	}
	if err := st.CreateAction(action); err != nil {
		t.Fatalf("create action failed: %v", err)
	}

	if _, err := m.ChangeType(context.Background(), "act-1", "user-1", domain.TypeTodo); !errors.IsCategory(err, errors.ErrNotFound) {
		t.Errorf("missing command must fail the reclassification, got %v", err)
	}

	got, _ := st.GetAction("act-1")
	if got.Type != domain.TypeNote {
		t.Errorf("type must not mutate without an audit record, got %v", got.Type)
	}
	log, _ := st.ListTransitions("act-1")
	if len(log) != 0 {
		t.Errorf("audit log should be empty, got %d", len(log))
	}
}

func TestChangeTypeGuards(t *testing.T) {
	st := testStore(t)
	m := NewManager(st, &fakePublisher{}, nil, 0.75)
	cmd := testCommand(st, t)

	id, _ := m.CreateFromClassification(context.Background(),
		cmd, &domain.Classification{Type: domain.TypeNote, Confidence: 0.9, Title: "x"})

	if _, err := m.ChangeType(context.Background(), id, "someone-else", domain.TypeTodo); !errors.IsCategory(err, errors.ErrNotFound) {
		t.Errorf("foreign reclassification must read as not found, got %v", err)
	}

	if _, err := m.ChangeType(context.Background(), id, "user-1", "grocery"); err == nil {
		t.Error("expected error for unknown type")
	}

	if _, err := m.ChangeType(context.Background(), "missing", "user-1", domain.TypeTodo); !errors.IsCategory(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Approve(context.Background(), id, "user-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := m.ChangeType(context.Background(), id, "user-1", domain.TypeTodo); !errors.IsCategory(err, errors.ErrInvalidStatus) {
		t.Errorf("processing action must be frozen, got %v", err)
	}
}
