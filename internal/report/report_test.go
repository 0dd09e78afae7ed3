package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ x, y int32 }

func (p point) Record() *Object {
	return NewObject().Set("x", p.x).Set("y", p.y)
}

type score float32

func TestObjectKeepsInsertionOrder(t *testing.T) {
	o := NewObject().Set("zeta", 1).Set("alpha", 2).Set("mid", 3)
	o.Set("zeta", 9)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, o.Keys())
	assert.Equal(t, 3, o.Len())
	v, ok := o.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 9, v)

	b, err := Marshal(o, "")
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":9,"alpha":2,"mid":3}`+"\n", string(b))
}

func TestNormalizeFixedWidthAndSequences(t *testing.T) {
	in := NewObject().
		Set("i8", int8(-3)).
		Set("u16", uint16(7)).
		Set("f32", float32(0.5)).
		Set("named", score(2)).
		Set("ints", []int64{1, 0, 1}).
		Set("arr", [2]float64{1.5, math.NaN()}).
		Set("nan", math.NaN()).
		Set("inf", math.Inf(1)).
		Set("nilptr", (*string)(nil)).
		Set("point", point{1, 2}).
		Set("map", map[string]int{"b": 2, "a": 1})

	out, ok := Normalize(in).(*Object)
	require.True(t, ok)

	get := func(k string) any {
		v, _ := out.Get(k)
		return v
	}
	assert.Equal(t, int64(-3), get("i8"))
	assert.Equal(t, uint64(7), get("u16"))
	assert.Equal(t, 0.5, get("f32"))
	assert.Equal(t, 2.0, get("named"))
	assert.Equal(t, []any{int64(1), int64(0), int64(1)}, get("ints"))
	assert.Equal(t, []any{1.5, nil}, get("arr"))
	assert.Nil(t, get("nan"))
	assert.Nil(t, get("inf"))
	assert.Nil(t, get("nilptr"))

	pt, ok := get("point").(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, pt.Keys())

	m, ok := get("map").(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestNormalizePassesThroughUnknown(t *testing.T) {
	ch := make(chan int)
	assert.Equal(t, ch, Normalize(ch))

	_, err := Marshal(NewObject().Set("ch", ch), "")
	require.Error(t, err)
}

func TestEncodeIndentAndNoHTMLEscape(t *testing.T) {
	doc := NewObject().Set("a <b>", NewObject().Set("count", 2))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc, StdoutIndent))
	want := "{\n  \"a <b>\": {\n    \"count\": 2\n  }\n}\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFileMatchesStdoutDocument(t *testing.T) {
	dir := t.TempDir()
	doc := NewObject().
		Set("price", NewObject().Set("count", 4).Set("mean", 2.5)).
		Set("predictions_error", "'success' column not found. Cannot predict.")

	path, err := WriteFile(dir, "/data/in/Sales.csv", doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Sales_results.json"), path)

	fileBytes, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(fileBytes), "\n    \"price\": {\n        \"count\": 4,")

	var stdout bytes.Buffer
	require.NoError(t, Encode(&stdout, doc, StdoutIndent))

	var fromFile, fromStdout any
	require.NoError(t, json.Unmarshal(fileBytes, &fromFile))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &fromStdout))
	assert.Equal(t, fromFile, fromStdout)

	var compactFile, compactStdout bytes.Buffer
	require.NoError(t, json.Compact(&compactFile, fileBytes))
	require.NoError(t, json.Compact(&compactStdout, stdout.Bytes()))
	assert.Equal(t, compactFile.String(), compactStdout.String())
}

func TestErrorDocument(t *testing.T) {
	b, err := Marshal(ErrorDocument("Please upload a CSV file only."), StdoutIndent)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"error\": \"Please upload a CSV file only.\"\n}\n", string(b))
}

func TestTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	assert.Equal(t, "2024-05-06T07:08:09", Timestamp(at))
	assert.Equal(t, "2024-05-06T07:08:09.000250", Timestamp(at.Add(250*time.Microsecond)))
	// sub-microsecond precision is truncated away
	assert.Equal(t, "2024-05-06T07:08:09", Timestamp(at.Add(999*time.Nanosecond)))
}
