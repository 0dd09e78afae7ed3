package analysis

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputRejectsExtensionBeforeStat(t *testing.T) {
	// the file does not exist; the extension check must win
	err := ValidateInput(filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, ErrNotCSV)
	assert.Equal(t, "Please upload a CSV file only.", err.Error())
}

func TestValidateInputMissingFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gone.csv")
	err := ValidateInput(p)
	var nf *FileNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "File not found: "+p, err.Error())
	assert.True(t, IsValidationError(err))
}

func TestValidateInputAcceptsUppercaseExtension(t *testing.T) {
	p := writeCSV(t, "DATA.CSV", "a", "1")
	assert.NoError(t, ValidateInput(p))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ErrNotCSV))
	assert.True(t, IsValidationError(&FileNotFoundError{Path: "x.csv"}))
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.False(t, IsValidationError(nil))
}
