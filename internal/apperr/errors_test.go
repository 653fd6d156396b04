package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuthentication, http.StatusUnauthorized},
		{KindAuthorization, http.StatusForbidden},
		{KindLimitExceeded, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
		{Kind(0), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("Kind(%d).HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NotFound("project not found")); got != KindNotFound {
		t.Errorf("KindOf() = %v, want KindNotFound", got)
	}

	wrapped := fmt.Errorf("loading project: %w", LimitExceeded("subscription project limit reached"))
	if got := KindOf(wrapped); got != KindLimitExceeded {
		t.Errorf("KindOf(wrapped) = %v, want KindLimitExceeded", got)
	}

	if got := KindOf(errors.New("pq: connection refused")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want KindInternal", got)
	}
}

func TestMessageOf_HidesInternalDetail(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")

	err := Internal("could not load tenant", cause)
	if got := MessageOf(err); got != "could not load tenant" {
		t.Errorf("MessageOf() = %q, want the client-safe message", got)
	}

	if got := MessageOf(cause); got != "internal server error" {
		t.Errorf("MessageOf(unclassified) = %q, want generic message", got)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("record not found")
	err := Internal("lookup failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if err.Error() != "lookup failed: record not found" {
		t.Errorf("Error() = %q", err.Error())
	}
	if msg := Validation("bad status").Error(); msg != "bad status" {
		t.Errorf("Error() without cause = %q", msg)
	}
}
