package bus

import (
	"context"
	stderrors "errors"
	"testing"
)

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(ctx context.Context, recipient, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestApprovalNotifierSkipsHighConfidence(t *testing.T) {
	sender := &recordingSender{}
	n := NewApprovalNotifier(sender, 0.75)

	evt := testEvent()
	evt.Confidence = 0.92
	if err := n.HandleActionCreated(context.Background(), evt); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("high confidence must not notify, sent %v", sender.sent)
	}
}

func TestApprovalNotifierDedup(t *testing.T) {
	sender := &recordingSender{}
	n := NewApprovalNotifier(sender, 0.75)

	evt := testEvent()
	evt.Confidence = 0.4

	for i := 0; i < 3; i++ {
		if err := n.HandleActionCreated(context.Background(), evt); err != nil {
			t.Fatalf("handle failed: %v", err)
		}
	}
	if len(sender.sent) != 1 {
		t.Errorf("redelivery must not renotify, sent %d times", len(sender.sent))
	}
}

func TestApprovalNotifierRetriesAfterSendFailure(t *testing.T) {
	sender := &recordingSender{err: stderrors.New("network down")}
	n := NewApprovalNotifier(sender, 0.75)

	evt := testEvent()
	evt.Confidence = 0.4

	if err := n.HandleActionCreated(context.Background(), evt); err == nil {
		t.Fatal("expected send failure to propagate")
	}

	sender.err = nil
	if err := n.HandleActionCreated(context.Background(), evt); err != nil {
		t.Fatalf("redelivery after failure must send: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d times", len(sender.sent))
	}
}
