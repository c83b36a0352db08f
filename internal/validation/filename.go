// Package validation guards filesystem operations against hostile
// names coming back from the API or a presigned URL.
package validation

import (
	"fmt"
	"strings"
)

// ValidateFilename checks a bare filename (not a path) before it is
// used in a filepath.Join. Names come from server responses and URL
// paths, so path separators, ".." and null bytes are all rejected.
// "foo..bar.txt" style names are fine; only the literal ".." is a
// traversal risk once separators are excluded.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}
	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %q", filename)
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("filename cannot be %q", filename)
	}
	return nil
}
