package analysis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrNotCSV is returned for input paths without a .csv extension.
var ErrNotCSV = errors.New("Please upload a CSV file only.")

// FileNotFoundError reports an input path with no file behind it.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string { return "File not found: " + e.Path }

// ValidateInput checks the extension first, without touching the filesystem,
// then that the file exists.
func ValidateInput(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), ".csv") {
		return ErrNotCSV
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileNotFoundError{Path: path}
		}
		return fmt.Errorf("stat input: %w", err)
	}
	return nil
}

// IsValidationError reports whether err came from ValidateInput's checks and
// should be surfaced as a JSON error object rather than a failure.
func IsValidationError(err error) bool {
	var nf *FileNotFoundError
	return errors.Is(err, ErrNotCSV) || errors.As(err, &nf)
}
