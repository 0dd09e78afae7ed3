package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/csvinsight-cli/internal/utils"
)

const (
	// FileIndent is used for the document written to the output directory.
	FileIndent = "    "
	// StdoutIndent is used for the document printed on standard output.
	StdoutIndent = "  "
	// TimestampLayout renders generated_at as local ISO-8601 with microseconds.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// wholeSecondLayout is used when the microsecond part is zero.
	wholeSecondLayout = "2006-01-02T15:04:05"
)

// Timestamp formats t for generated_at, dropping the fraction when it has no
// microseconds.
func Timestamp(t time.Time) string {
	if t.Nanosecond()/1000 == 0 {
		return t.Format(wholeSecondLayout)
	}
	return t.Format(TimestampLayout)
}

// ErrorDocument is the {"error": msg} object reported for usage and
// validation errors.
func ErrorDocument(msg string) *Object {
	return NewObject().Set("error", msg)
}

// Marshal normalizes v and encodes it as JSON. An empty indent produces
// compact output.
func Marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode normalizes v and writes it to w as JSON followed by a newline.
func Encode(w io.Writer, v any, indent string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(Normalize(v)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ResultPath returns <dir>/<input stem>_results.json.
func ResultPath(dir, input string) string {
	return filepath.Join(dir, utils.Stem(input)+"_results.json")
}

// WriteFile writes v to ResultPath(dir, input) with FileIndent, replacing any
// previous result for the same stem. It returns the written path.
func WriteFile(dir, input string, v any) (string, error) {
	b, err := Marshal(v, FileIndent)
	if err != nil {
		return "", err
	}
	path := ResultPath(dir, input)
	if err := utils.SafeWriteFile(path, b); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
