package core

import (
	"errors"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatTransport,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatTransport, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatUpstream, Code: "X", Message: "msg"}
	err.WithDetail("agent", "copywriter")
	if err.Details == nil || err.Details["agent"] != "copywriter" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if !ErrTransport("C", "m").Retryable {
		t.Fatalf("transport should be retryable")
	}
	if ErrProtocol("C", "m").Retryable {
		t.Fatalf("protocol should not be retryable")
	}
	if ErrUpstream("C", "m").Retryable {
		t.Fatalf("upstream should not be retryable")
	}
	if !ErrPersistence("C", "m").Retryable {
		t.Fatalf("persistence should be retryable")
	}
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrState("C", "m").Retryable {
		t.Fatalf("state should not be retryable")
	}
}

func TestCategoryHelpers(t *testing.T) {
	if !IsTransport(ErrTransport("C", "m")) {
		t.Fatalf("expected transport match")
	}
	if !IsProtocol(ErrProtocol("C", "m")) {
		t.Fatalf("expected protocol match")
	}
	if !IsUpstream(ErrUpstream("C", "m")) {
		t.Fatalf("expected upstream match")
	}
	if !IsPersistence(ErrPersistence("C", "m")) {
		t.Fatalf("expected persistence match")
	}
	if IsTransport(ErrUpstream("C", "m")) {
		t.Fatalf("category helpers must not cross-match")
	}
}

func TestCategoryHelpers_WrappedError(t *testing.T) {
	inner := ErrTransport(CodeStreamCut, "connection closed mid-stream")
	wrapped := errors.Join(errors.New("call failed"), inner)
	if !IsTransport(wrapped) {
		t.Fatalf("expected errors.As to find domain error through wrapping")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrPersistence("C", "m")) != ErrCatPersistence {
		t.Fatalf("expected persistence category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrNotFound("run", "r1"), ErrCatNotFound) {
		t.Fatalf("expected category match")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrTimeout("m")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}
