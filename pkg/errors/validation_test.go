package errors

import (
	"strings"
	"testing"
)

func TestValidateSeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative path", "index.html", false},
		{"absolute path", "/var/www/index.html", false},
		{"http url", "http://example.com/", false},
		{"file url", "file:///tmp/index.html", false},
		{"long data url", "data:text/plain," + strings.Repeat("a", 5000), false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 3000), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"ftp scheme", "ftp://example.com/a.css", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSeed(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSeed(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"http", "http://example.com/a.css", false},
		{"https upper", "HTTPS://example.com/", false},
		{"data", "data:,hello", false},
		{"file", "file:///a/b.html", false},

		{"empty", "", true},
		{"relative", "a.css", true},
		{"javascript", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidURL) {
				t.Errorf("ValidateURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidURL)
			}
		})
	}
}
