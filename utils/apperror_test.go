package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation", NewValidationError("missing_field", "x"), http.StatusBadRequest},
		{"auth", NewAuthError("invalid_token", "x"), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("x"), http.StatusForbidden},
		{"invalid state", NewInvalidStateError("bad_state", "x"), http.StatusConflict},
		{"provider transport", NewProviderError("timeout", "x", false, nil), http.StatusBadGateway},
		{"provider declined", NewProviderError("declined", "x", true, nil), http.StatusBadRequest},
		{"not found", NewNotFoundError("x"), http.StatusNotFound},
		{"persistence", NewPersistenceError("x", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("approve: %w", NewInvalidStateError("bad_state", "not pending"))
	if KindOf(err) != KindInvalidState {
		t.Errorf("expected invalid_state, got %s", KindOf(err))
	}
	if !IsKind(err, KindInvalidState) {
		t.Error("IsKind should see through wrapping")
	}
	if KindOf(errors.New("plain")) != KindPersistence {
		t.Error("unclassified errors should default to persistence")
	}
}
