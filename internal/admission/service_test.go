package admission

import (
	"context"
	"testing"
	"time"

	"github.com/harunnryd/denrei/internal/domain"
	"github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/store"
)

type fakeClassifier struct {
	cls   *domain.Classification
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, userID, text string) (*domain.Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.cls, nil
}

type fakeLifecycle struct {
	actionID string
	err      error
	created  int
}

func (f *fakeLifecycle) CreateFromClassification(ctx context.Context, cmd *domain.Command, cls *domain.Classification) (string, error) {
	f.created++
	if f.err != nil {
		return "", f.err
	}
	return f.actionID, nil
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

func testEvent() Event {
	return Event{
		Source:     domain.SourceWhatsAppText,
		ExternalID: "wamid.1",
		UserID:     "user-1",
		Text:       "buy milk tomorrow",
		Timestamp:  time.Now().UTC(),
	}
}

func TestAdmitNewCommand(t *testing.T) {
	st := testStore(t)
	classifier := &fakeClassifier{cls: &domain.Classification{Type: domain.TypeTodo, Confidence: 0.9, Title: "Buy milk"}}
	lc := &fakeLifecycle{actionID: "act-1"}
	svc := New(st, classifier, lc)

	result, err := svc.Admit(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if !result.IsNew {
		t.Error("expected IsNew for first delivery")
	}

	cmd, getErr := st.GetCommand(result.CommandID)
	if getErr != nil {
		t.Fatalf("command not persisted: %v", getErr)
	}
	if cmd.Status != domain.CommandClassified {
		t.Errorf("status = %v", cmd.Status)
	}
	if cmd.ActionID != "act-1" {
		t.Errorf("action back-link = %q", cmd.ActionID)
	}
	if cmd.Classification == nil || cmd.Classification.Type != domain.TypeTodo {
		t.Errorf("classification not recorded: %+v", cmd.Classification)
	}
}

func TestAdmitDuplicateDelivery(t *testing.T) {
	st := testStore(t)
	classifier := &fakeClassifier{cls: &domain.Classification{Type: domain.TypeTodo, Confidence: 0.9, Title: "Buy milk"}}
	lc := &fakeLifecycle{actionID: "act-1"}
	svc := New(st, classifier, lc)

	first, err := svc.Admit(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("first admit failed: %v", err)
	}

	second, err := svc.Admit(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("duplicate admit failed: %v", err)
	}

	if second.IsNew {
		t.Error("duplicate must not be new")
	}
	if second.CommandID != first.CommandID {
		t.Errorf("duplicate returned different id: %s vs %s", second.CommandID, first.CommandID)
	}
	if classifier.calls != 1 {
		t.Errorf("duplicate must not reclassify, got %d calls", classifier.calls)
	}
	if lc.created != 1 {
		t.Errorf("duplicate must not create another action, got %d", lc.created)
	}
}

func TestAdmitClassifierUnavailable(t *testing.T) {
	st := testStore(t)
	classifier := &fakeClassifier{err: errors.Wrap(errors.ErrClassifierUnavailable, "credentials unavailable")}
	svc := New(st, classifier, &fakeLifecycle{})

	result, err := svc.Admit(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("credential outage must be absorbed: %v", err)
	}

	cmd, getErr := st.GetCommand(result.CommandID)
	if getErr != nil {
		t.Fatalf("command not persisted: %v", getErr)
	}
	if cmd.Status != domain.CommandPendingClassification {
		t.Errorf("expected pending_classification, got %v", cmd.Status)
	}
}

func TestAdmitClassifierHardFailure(t *testing.T) {
	st := testStore(t)
	classifier := &fakeClassifier{err: errors.Wrap(errors.ErrClassifierTransient, "provider error")}
	svc := New(st, classifier, &fakeLifecycle{})

	result, err := svc.Admit(context.Background(), testEvent())
	if err == nil {
		t.Fatal("expected classification error")
	}
	if result == nil {
		t.Fatal("persisted command must still yield a result")
	}

	cmd, getErr := st.GetCommand(result.CommandID)
	if getErr != nil {
		t.Fatalf("command not persisted: %v", getErr)
	}
	if cmd.Status != domain.CommandFailed {
		t.Errorf("expected failed, got %v", cmd.Status)
	}
}

func TestAdmitValidation(t *testing.T) {
	st := testStore(t)
	svc := New(st, &fakeClassifier{}, &fakeLifecycle{})

	cases := []Event{
		{Source: "carrier_pigeon", ExternalID: "x", UserID: "u", Text: "t"},
		{Source: domain.SourceWhatsAppText, ExternalID: "", UserID: "u", Text: "t"},
		{Source: domain.SourceWhatsAppText, ExternalID: "x", UserID: "", Text: "t"},
		{Source: domain.SourceWhatsAppText, ExternalID: "x", UserID: "u", Text: "  "},
	}

	for i, evt := range cases {
		if _, err := svc.Admit(context.Background(), evt); !errors.IsCategory(err, errors.ErrValidation) {
			t.Errorf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}
