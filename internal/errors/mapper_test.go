package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapClassifierError(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{"invalid api key", ErrClassifierUnavailable},
		{"401 unauthorized", ErrClassifierUnavailable},
		{"no provider configured", ErrClassifierUnavailable},
		{"rate limit exceeded", ErrClassifierTransient},
		{"429 too many requests", ErrClassifierTransient},
		{"request timeout", ErrClassifierTransient},
		{"connection refused", ErrClassifierTransient},
		{"malformed response: no JSON object", ErrClassifierTransient},
		{"no choices returned", ErrClassifierTransient},
		{"something entirely new", ErrClassifierTransient},
	}

	for _, tc := range cases {
		got := MapClassifierError(fmt.Errorf("%s", tc.raw))
		if !errors.Is(got, tc.want) {
			t.Errorf("MapClassifierError(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestMapClassifierErrorContext(t *testing.T) {
	if got := MapClassifierError(context.Canceled); !errors.Is(got, context.Canceled) {
		t.Errorf("cancellation must pass through, got %v", got)
	}
	if got := MapClassifierError(context.DeadlineExceeded); !errors.Is(got, ErrClassifierTransient) {
		t.Errorf("deadline must map to transient, got %v", got)
	}
	if got := MapClassifierError(nil); got != nil {
		t.Errorf("nil must stay nil, got %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(Wrap(ErrClassifierUnavailable, "credentials")) {
		t.Error("credential outage is not immediately retryable")
	}
	if !IsRetryable(Wrap(ErrClassifierTransient, "rate limited")) {
		t.Error("transient errors are retryable")
	}
	if !IsRetryable(Wrap(ErrConcurrentModification, "lost race")) {
		t.Error("lost CAS races are retryable")
	}
	if IsRetryable(context.Canceled) {
		t.Error("cancellation is not retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestCategory(t *testing.T) {
	if got := Category(Validation("bad input")); got != "ErrValidation" {
		t.Errorf("got %q", got)
	}
	if got := Category(Wrap(ErrConcurrentModification, "x")); got != "ErrConcurrentModification" {
		t.Errorf("got %q", got)
	}
	if got := Category(errors.New("mystery")); got != "Unknown" {
		t.Errorf("got %q", got)
	}
}
