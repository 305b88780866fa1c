package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// classNameRegex matches a single class name segment: a Go-style identifier.
var classNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidateClassName validates the name a class is registered under.
// Class names appear in `_class` and as segments of `_class_namespace`, so
// they must not contain dots or start with the private prefix.
func ValidateClassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidClass, "class name cannot be empty")
	}
	if !classNameRegex.MatchString(name) {
		return New(ErrCodeInvalidClass, "invalid class name: %q", name)
	}
	return nil
}

// moduleNameRegex matches module names: identifiers optionally joined by
// dots, slashes or dashes (package paths are accepted verbatim).
var moduleNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_./-]*$`)

// ValidateModuleName validates a module scope.
func ValidateModuleName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidClass, "module name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidClass, "module name too long (max 256 characters)")
	}
	if !moduleNameRegex.MatchString(name) {
		return New(ErrCodeInvalidClass, "invalid module name: %q", name)
	}
	return nil
}

// ValidateKey validates a store key.
//
// Keys end up in file names (hashed), Redis keys and SQLite rows, so the
// rules are conservative:
//   - No empty keys
//   - No control characters or null bytes
//   - No path traversal sequences
//   - Maximum length of 512 characters
func ValidateKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "key cannot be empty")
	}

	const maxKeyLength = 512
	if len(key) > maxKeyLength {
		return New(ErrCodeInvalidKey, "key too long (max %d characters)", maxKeyLength)
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidKey, "key contains invalid control characters")
		}
	}

	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidKey, "key cannot contain path traversal sequences (..)")
	}
	if strings.Contains(key, "\\") {
		return New(ErrCodeInvalidKey, "key cannot contain backslashes")
	}

	return nil
}
