package sonarerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsUnwrapsWrappedError(t *testing.T) {
	base := NotFound("track", "abc")
	wrapped := fmt.Errorf("loading track: %w", base)

	if !Is(wrapped, KindNotFound) {
		t.Errorf("Is(wrapped, KindNotFound) = false, want true")
	}
	if Is(wrapped, KindConflict) {
		t.Errorf("Is(wrapped, KindConflict) = true, want false")
	}
}

func TestIsPlainErrorIsFalse(t *testing.T) {
	if Is(errors.New("boom"), KindInternal) {
		t.Errorf("Is(plain error, KindInternal) = true, want false")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NotFound("artist", "artist_1"), "not found: artist artist_1"},
		{"invalid argument", InvalidArgument("name", "required"), "invalid argument: name: required"},
		{"invalid id", InvalidID("track"), "invalid id: expected namespace track"},
		{"conflict", Conflict("username already taken"), "conflict: username already taken"},
		{"permission denied", PermissionDenied(), "permission_denied: admin required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Internal(cause) should unwrap to cause")
	}
}
