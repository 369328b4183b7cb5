package errors

import (
	"strings"
	"unicode"
)

// supportedSchemes lists the URL schemes a seed may use.
var supportedSchemes = []string{"http://", "https://", "file://", "data:"}

// ValidateSeed validates a seed URL or path passed on the command line or
// through the API before it is handed to the graph.
//
// The validation rules are intentionally conservative:
//   - No empty input
//   - No control characters or null bytes
//   - Maximum length of 2048 characters (data: URLs are exempt)
//   - If a scheme is present it must be one the loaders support
func ValidateSeed(seed string) error {
	if seed == "" {
		return New(ErrCodeInvalidInput, "seed cannot be empty")
	}

	isData := strings.HasPrefix(seed, "data:")
	const maxSeedLength = 2048
	if !isData && len(seed) > maxSeedLength {
		return New(ErrCodeInvalidInput, "seed too long (max %d characters)", maxSeedLength)
	}

	for _, r := range seed {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "seed contains invalid control characters")
		}
	}

	if i := strings.Index(seed, "://"); i > 0 && !hasSupportedScheme(seed) {
		return New(ErrCodeInvalidURL, "unsupported scheme %q", seed[:i])
	}
	return nil
}

// ValidateURL validates an absolute URL for safety.
// It ensures the URL uses one of the schemes the loaders understand.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}
	if !hasSupportedScheme(rawURL) {
		return New(ErrCodeInvalidURL, "URL must use http, https, file or data scheme")
	}
	return nil
}

func hasSupportedScheme(s string) bool {
	lower := strings.ToLower(s)
	for _, scheme := range supportedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
