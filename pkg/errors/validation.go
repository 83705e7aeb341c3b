package errors

import (
	"strings"
	"unicode"
)

// ValidateArtifactName validates an artifact or group name for safety.
// Cache file names are derived from the artifact name, so anything that
// could escape the cache directory is rejected here.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, slashes, backslashes)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateArtifactName(name string) error {
	if name == "" {
		return New(ErrCodeMalformedCoordinate, "artifact name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeMalformedCoordinate, "artifact name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeMalformedCoordinate, "artifact name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeMalformedCoordinate, "artifact name contains invalid characters: %q", pattern)
		}
	}

	return nil
}
