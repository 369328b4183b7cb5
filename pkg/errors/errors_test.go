package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUsage, "test message: %s", "value")

	if err.Code != ErrCodeUsage {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUsage)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "USAGE_ERROR: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestErrorWithAssetAndLine(t *testing.T) {
	err := New(ErrCodeSyntax, "bad entry").WithAsset("http://x/a.appcache").WithLine(3)

	expected := "SYNTAX_ERROR: bad entry (http://x/a.appcache:3)"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeLoad, cause, "failed to fetch")

	if err.Code != ErrCodeLoad {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeLoad)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeParse, "test"),
			code:     ErrCodeParse,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeParse, "test"),
			code:     ErrCodeLoad,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeLoad, New(ErrCodeParse, "inner"), "outer"),
			code:     ErrCodeLoad,
			expected: true,
		},
		{
			name:     "unsupported is usage",
			err:      New(ErrCodeUnsupported, "cannot detach"),
			code:     ErrCodeUsage,
			expected: true,
		},
		{
			name:     "usage is not unsupported",
			err:      New(ErrCodeUsage, "misuse"),
			code:     ErrCodeUnsupported,
			expected: false,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeParse,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeParse,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		code Code
		want bool
	}{
		{ErrCodeLoad, true},
		{ErrCodeParse, true},
		{ErrCodeSyntax, true},
		{ErrCodeUsage, false},
		{ErrCodeUnsupported, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := IsRecoverable(New(tt.code, "x")); got != tt.want {
				t.Errorf("IsRecoverable(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
	if IsRecoverable(errors.New("plain")) {
		t.Error("plain errors must not be recoverable")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeSyntax, "test"),
			expected: ErrCodeSyntax,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLoadError(t *testing.T) {
	t.Run("with status", func(t *testing.T) {
		err := &LoadError{URL: "http://x/a.css", Status: 404, Message: "Not Found"}
		expected := "load http://x/a.css: 404 Not Found"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &LoadError{URL: "http://x/", Message: "network error", Cause: cause}
		if !errors.Is(err, cause) {
			t.Error("errors.Is(err, cause) = false, want true")
		}
	})

	t.Run("code method", func(t *testing.T) {
		err := &LoadError{}
		if err.Code() != ErrCodeLoad {
			t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeLoad)
		}
	})
}
