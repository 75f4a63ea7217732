package domain

import (
	"testing"
)

func TestParseActionType(t *testing.T) {
	valid := []string{"todo", "research", "note", "link", "calendar", "reminder", "unclassified"}
	for _, raw := range valid {
		got, err := ParseActionType(raw)
		if err != nil {
			t.Fatalf("ParseActionType(%q) failed: %v", raw, err)
		}
		if string(got) != raw {
			t.Errorf("ParseActionType(%q) = %q", raw, got)
		}
	}

	if got, err := ParseActionType("  TODO \n"); err != nil || got != TypeTodo {
		t.Errorf("expected normalization to todo, got %q, %v", got, err)
	}

	if _, err := ParseActionType("grocery"); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := ParseActionType(""); err == nil {
		t.Error("expected error for empty type")
	}
}

func TestInitialStatus(t *testing.T) {
	cases := []struct {
		confidence float64
		want       ActionStatus
	}{
		{0.92, ActionPending},
		{0.75, ActionPending}, // threshold is inclusive
		{0.7499, ActionAwaitingApproval},
		{0.3, ActionAwaitingApproval},
		{0, ActionAwaitingApproval},
	}

	for _, tc := range cases {
		if got := InitialStatus(tc.confidence, 0.75); got != tc.want {
			t.Errorf("InitialStatus(%v) = %v, want %v", tc.confidence, got, tc.want)
		}
	}
}

func TestTypeMutable(t *testing.T) {
	mutable := []ActionStatus{ActionPending, ActionAwaitingApproval}
	frozen := []ActionStatus{ActionProcessing, ActionCompleted, ActionRejected, ActionFailed, ActionArchived}

	for _, st := range mutable {
		a := Action{Status: st}
		if !a.TypeMutable() {
			t.Errorf("expected %v to be type-mutable", st)
		}
	}
	for _, st := range frozen {
		a := Action{Status: st}
		if a.TypeMutable() {
			t.Errorf("expected %v to be frozen", st)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	if got := ClampConfidence(1.7); got != 1 {
		t.Errorf("ClampConfidence(1.7) = %v", got)
	}
	if got := ClampConfidence(-0.2); got != 0 {
		t.Errorf("ClampConfidence(-0.2) = %v", got)
	}
	if got := ClampConfidence(0.42); got != 0.42 {
		t.Errorf("ClampConfidence(0.42) = %v", got)
	}
}
