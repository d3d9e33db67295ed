package media

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsPermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not allowed", NewError(NotAllowedError, "denied by user"), true},
		{"legacy name", &Error{Name: PermissionDeniedError}, true},
		{"wrapped", fmt.Errorf("request: %w", NewError(NotAllowedError, "x")), true},
		{"not readable", NewError(NotReadableError, "device busy"), false},
		{"plain error", errors.New("permission denied"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermissionDenied(tt.err); got != tt.want {
				t.Errorf("IsPermissionDenied() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	err := &Error{Name: AbortError, Message: "request canceled", Err: context.Canceled}
	if err.Error() != "AbortError: request canceled" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected Unwrap to expose the cause")
	}
	if got := (&Error{Name: TypeError}).Error(); got != "TypeError" {
		t.Errorf("Error() without message = %q", got)
	}
}

func TestDescription(t *testing.T) {
	if got := Description(nil); got != "" {
		t.Errorf("Description(nil) = %q", got)
	}
	if got := Description(NewError(NotReadableError, "device %s busy", "hw:0")); got != "device hw:0 busy" {
		t.Errorf("Description() = %q", got)
	}
	if got := Description(errors.New("plain")); got != "plain" {
		t.Errorf("Description() = %q", got)
	}
}
