package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateResourceID validates a cloud resource identifier for safety.
// IDs flow into cache keys, store documents, and HTTP path parameters, so
// the validation rules are intentionally conservative:
//   - No empty IDs
//   - No control characters or null bytes
//   - No path traversal sequences (.., backslashes)
//   - Maximum length of 1024 characters
//
// Provider-specific shape checks (ARN format, Azure resource paths) are done
// separately by the normalizer.
func ValidateResourceID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "resource id cannot be empty")
	}

	if len(id) > 1024 {
		return New(ErrCodeInvalidInput, "resource id too long (max 1024 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "resource id contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "resource id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// themeNameRegex matches valid theme names.
var themeNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateThemeName validates a theme name. Theme names come from user input
// (CLI flags, API payloads, TOML files) and must be simple lowercase slugs.
func ValidateThemeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "theme name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidInput, "theme name too long (max 64 characters)")
	}

	if !themeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid theme name: %q", name)
	}

	return nil
}

// snapshotIDRegex matches valid snapshot identifiers (UUIDs or hex hashes).
var snapshotIDRegex = regexp.MustCompile(`^[a-fA-F0-9-]+$`)

// ValidateSnapshotID validates a snapshot or diagram identifier used as a
// store lookup key. It ensures the ID is a simple token without path
// components.
func ValidateSnapshotID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "snapshot id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "snapshot id too long (max 128 characters)")
	}

	if !snapshotIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid snapshot id: %q", id)
	}

	return nil
}

// ValidateOutputPath validates a user-supplied output file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "output path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output path contains invalid characters")
		}
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidInput, "output path cannot contain path traversal sequences (..)")
	}

	return nil
}
