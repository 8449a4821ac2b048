package errors

import (
	"strings"
	"unicode"
)

// ValidateTraitName validates a category or trait name from configuration.
// Trait names end up verbatim in metadata as trait_type, so they must be
// printable and reasonably short.
func ValidateTraitName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeConfiguration, "trait name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeConfiguration, "trait name too long (max 128 characters): %q", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeConfiguration, "trait name contains invalid control characters: %q", name)
		}
	}

	return nil
}

// ValidatePath validates a configured directory path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateBaseURL validates the prefix used for metadata image links.
// Any string is accepted, including an empty or relative one; only
// control characters are rejected.
func ValidateBaseURL(rawURL string) error {
	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "URL contains invalid control characters: %q", rawURL)
		}
	}
	return nil
}
