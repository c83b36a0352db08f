// Package diskspace checks free space on the filesystem a download
// will land on, so a large file fails fast instead of half-written.
package diskspace

import "fmt"

// SafetyMargin is the multiplier applied to the required size before
// comparing against free space.
const SafetyMargin = 1.1

// InsufficientSpaceError indicates the target filesystem cannot hold
// the file.
type InsufficientSpaceError struct {
	Path           string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space for %s: need %.2f MB, have %.2f MB available",
		e.Path, requiredMB, availableMB)
}

// Check verifies the filesystem holding targetPath has room for
// requiredBytes plus the safety margin. When free space cannot be
// determined (network mounts, exotic filesystems) it returns nil and
// lets the write fail naturally.
func Check(targetPath string, requiredBytes int64) error {
	if requiredBytes <= 0 {
		return nil
	}

	available := Available(targetPath)
	if available == 0 {
		return nil
	}

	required := int64(float64(requiredBytes) * SafetyMargin)
	if available < required {
		return &InsufficientSpaceError{
			Path:           targetPath,
			RequiredBytes:  required,
			AvailableBytes: available,
		}
	}
	return nil
}

// IsInsufficientSpaceError reports whether err is an
// InsufficientSpaceError.
func IsInsufficientSpaceError(err error) bool {
	_, ok := err.(*InsufficientSpaceError)
	return ok
}
