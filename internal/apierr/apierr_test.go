package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInvalidObservation, http.StatusUnprocessableEntity, "invalid_observation"},
		{ErrInsufficientData, http.StatusUnprocessableEntity, "insufficient_data"},
		{ErrStaleState, http.StatusConflict, "stale_state"},
		{ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{ErrPassInProgress, http.StatusConflict, "pass_in_progress"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
}

func TestFromErrorUnwrapsWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("transition failed: %w", ErrStaleState)
	got := FromError(wrapped)
	if got.Status != http.StatusConflict || got.Code != "stale_state" {
		t.Fatalf("wrapped sentinel: want=409/stale_state got=%d/%s", got.Status, got.Code)
	}
}

func TestFromErrorNil(t *testing.T) {
	if got := FromError(nil); got != nil {
		t.Fatalf("nil error: want=nil got=%v", got)
	}
}

func TestFromErrorPassesThroughExplicitError(t *testing.T) {
	explicit := New(http.StatusBadRequest, "invalid_tenant_id", errors.New("bad uuid"))
	got := FromError(explicit)
	if got != explicit {
		t.Fatalf("explicit *Error must pass through unchanged")
	}
}
