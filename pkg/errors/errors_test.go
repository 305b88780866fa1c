package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeUnsupportedType, "unsupported type %s", "chan int")
	if got, want := err.Error(), "UNSUPPORTED_TYPE: unsupported type chan int"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("unexpected EOF")
	wrapped := Wrap(ErrCodeInvalidFormat, cause, "read %s", "rig.json")
	if got, want := wrapped.Error(), "INVALID_FORMAT: read rig.json: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if errors.Unwrap(wrapped) != cause || !errors.Is(wrapped, cause) {
		t.Error("Wrap lost its cause")
	}
}

func TestIs(t *testing.T) {
	inner := New(ErrCodeFileNotFound, "open rig.json")
	outer := Wrap(ErrCodeInvalidInput, inner, "load")
	viaFmt := fmt.Errorf("cli: %w", outer)

	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"direct", inner, ErrCodeFileNotFound, true},
		{"other code", inner, ErrCodeNotFound, false},
		{"outer code", outer, ErrCodeInvalidInput, true},
		{"inner code through Wrap", outer, ErrCodeFileNotFound, true},
		{"through fmt wrapping", viaFmt, ErrCodeFileNotFound, true},
		{"plain error", errors.New("boom"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is(%v, %s) = %v, want %v", tt.err, tt.code, got, tt.want)
			}
		})
	}
}

func TestSentinelMatch(t *testing.T) {
	notFound := New(ErrCodeNotFound, "")
	err := fmt.Errorf("get: %w", New(ErrCodeNotFound, "snapshot %q", "rig"))

	if !errors.Is(err, notFound) {
		t.Error("errors.Is should match a code-only sentinel")
	}
	if errors.Is(err, New(ErrCodeNotFound, "other message")) {
		t.Error("a sentinel with a message must not match by code")
	}
	if errors.Is(err, New(ErrCodeInvalidKey, "")) {
		t.Error("sentinel with another code matched")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"coded", New(ErrCodeClassResolution, "no class"), ErrCodeClassResolution},
		{"outermost wins", Wrap(ErrCodeInvalidFormat, New(ErrCodeFileNotFound, "x"), "y"), ErrCodeInvalidFormat},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Errorf("%s: GetCode() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New(ErrCodeInvalidInput, "bad name"), "bad name"},
		{"chain drops codes", Wrap(ErrCodeInvalidFormat, New(ErrCodeFileNotFound, "open a.json"), "load"), "load: open a.json"},
		{"plain cause", Wrap(ErrCodeInternal, errors.New("disk full"), "write"), "write: disk full"},
		{"plain", errors.New("plain error"), "plain error"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("%s: UserMessage() = %q, want %q", tt.name, got, tt.want)
		}
	}
}
