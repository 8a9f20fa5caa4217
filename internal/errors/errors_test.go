package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGetServiceErrorUnwrapsChain(t *testing.T) {
	base := NotFound("agent", "a1")
	wrapped := fmt.Errorf("load agent: %w", base)

	got := GetServiceError(wrapped)
	if got == nil {
		t.Fatalf("expected service error in chain")
	}
	if got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got.HTTPStatus)
	}
	if got.Details["id"] != "a1" {
		t.Fatalf("expected id detail, got %v", got.Details)
	}
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected IsCode to match NOT_FOUND")
	}
}

func TestHTTPStatusDefaultsToInternal(t *testing.T) {
	if status := HTTPStatus(stderrors.New("boom")); status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if status := HTTPStatus(Conflict("dup")); status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := stderrors.New("db down")
	err := Internal("list agents", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if err.Error() != "list agents: db down" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
