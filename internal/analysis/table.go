package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Options controls loading and modeling.
type Options struct {
	// Delimiter for CSV. If 0, picked from the file extension.
	Delimiter rune
	// Label names the column the classifier predicts.
	Label string
	// Classifier hyperparameters.
	C       float64
	MaxIter int
	Tol     float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now stamps generated_at. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the settings the pipeline runs with when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		Label:   "success",
		C:       1.0,
		MaxIter: 100,
		Tol:     1e-4,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Kind is the inferred type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindCategorical
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Column is one of *NumericColumn, *CategoricalColumn or *BooleanColumn.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	// Missing reports whether row i has no value.
	Missing(i int) bool
	sealed()
}

// NumericColumn holds numbers; missing entries are NaN.
type NumericColumn struct {
	name   string
	Values []float64
	// Integer is set when every entry is present and integral.
	Integer bool
}

func (c *NumericColumn) Name() string       { return c.name }
func (c *NumericColumn) Kind() Kind         { return KindNumeric }
func (c *NumericColumn) Len() int           { return len(c.Values) }
func (c *NumericColumn) Missing(i int) bool { return math.IsNaN(c.Values[i]) }
func (*NumericColumn) sealed()              {}

// CategoricalColumn holds text values.
type CategoricalColumn struct {
	name   string
	Values []string
	Valid  []bool
	// Boolean is set when every present value is a True/False literal but
	// some are missing. Values then hold "true" or "false".
	Boolean bool
}

func (c *CategoricalColumn) Name() string       { return c.name }
func (c *CategoricalColumn) Kind() Kind         { return KindCategorical }
func (c *CategoricalColumn) Len() int           { return len(c.Values) }
func (c *CategoricalColumn) Missing(i int) bool { return !c.Valid[i] }
func (*CategoricalColumn) sealed()              {}

// BooleanColumn holds True/False literals and never has missing entries.
type BooleanColumn struct {
	name   string
	Values []bool
}

func (c *BooleanColumn) Name() string     { return c.name }
func (c *BooleanColumn) Kind() Kind       { return KindBoolean }
func (c *BooleanColumn) Len() int         { return len(c.Values) }
func (c *BooleanColumn) Missing(int) bool { return false }
func (*BooleanColumn) sealed()            {}

// NewNumericColumn builds a numeric column; NaN marks missing values.
func NewNumericColumn(name string, values []float64) *NumericColumn {
	integer := len(values) > 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			integer = false
			break
		}
	}
	return &NumericColumn{name: name, Values: values, Integer: integer}
}

// NewCategoricalColumn builds a categorical column. A nil valid slice marks
// every value present.
func NewCategoricalColumn(name string, values []string, valid []bool) *CategoricalColumn {
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	}
	return &CategoricalColumn{name: name, Values: values, Valid: valid}
}

// NewBooleanColumn builds a boolean column.
func NewBooleanColumn(name string, values []bool) *BooleanColumn {
	return &BooleanColumn{name: name, Values: values}
}

// Table is an ordered set of equally long columns. It is not modified after
// loading.
type Table struct {
	Name    string
	Rows    int
	Columns []Column
}

// NewTable assembles a table, checking that all columns share a length.
func NewTable(name string, cols ...Column) (*Table, error) {
	t := &Table{Name: name, Columns: cols}
	for i, c := range cols {
		if i == 0 {
			t.Rows = c.Len()
			continue
		}
		if c.Len() != t.Rows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", c.Name(), c.Len(), t.Rows)
		}
	}
	return t, nil
}

// Column returns the column named name and its position.
func (t *Table) Column(name string) (Column, int, bool) {
	for i, c := range t.Columns {
		if c.Name() == name {
			return c, i, true
		}
	}
	return nil, -1, false
}

// ErrNoColumns is returned for files without a header row.
var ErrNoColumns = errors.New("no columns to parse from file")

// missingTokens are read as missing values.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var boolTokens = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// LoadCSV parses the file at path into a Table, inferring column kinds.
// Rows with more fields than the header are an error; shorter rows are padded
// with missing values.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), delim)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses CSV from r. See LoadCSV. A leading UTF-8 byte order mark is
// dropped. Stray quotes inside fields are kept as text, but a quoted field
// still open at end of input is an error.
func ReadCSV(r io.Reader, name string, delim rune) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := checkQuotes(data, delim); err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.Comma = delim
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	names := columnNames(header)

	cells := make([][]string, ncol)
	rows := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", rows+1, err)
		}
		if len(rec) > ncol {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("error tokenizing data: expected %d fields in line %d, saw %d", ncol, line, len(rec))
		}
		rows++
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = rec[j]
			}
			cells[j] = append(cells[j], v)
		}
	}

	t := &Table{Name: name, Rows: rows, Columns: make([]Column, ncol)}
	for j := range cells {
		t.Columns[j] = inferColumn(names[j], cells[j], rows)
	}
	return t, nil
}

// checkQuotes walks data the way a lazy-quotes csv.Reader does and reports
// a quoted field that is never closed. Inside a quoted field only a quote
// followed by the delimiter, a line break or end of input closes it.
func checkQuotes(data []byte, delim rune) error {
	line, start := 1, 0
	inQuote, fieldStart := false, true
	for i := 0; i < len(data); {
		c, size := utf8.DecodeRune(data[i:])
		i += size
		if inQuote {
			switch {
			case c == '"' && i < len(data) && data[i] == '"':
				i++
			case c == '"':
				next, _ := utf8.DecodeRune(data[i:])
				if i >= len(data) || next == delim || next == '\n' || next == '\r' {
					inQuote = false
				}
			case c == '\n':
				line++
			}
			continue
		}
		switch {
		case c == '\n':
			line++
			fieldStart = true
		case c == delim:
			fieldStart = true
		case c == '"' && fieldStart:
			inQuote, start = true, line
			fieldStart = false
		default:
			fieldStart = false
		}
	}
	if inQuote {
		return fmt.Errorf("error tokenizing data: EOF inside string starting at line %d", start)
	}
	return nil
}

// columnNames fills blank headers and de-duplicates repeats as name.1, name.2.
func columnNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// inferColumn picks numeric when every present value parses as a number
// (including a column with no values at all), boolean when every value is a
// True/False literal with none missing, and categorical otherwise. A table
// without rows yields categorical columns.
func inferColumn(name string, cells []string, rows int) Column {
	if rows == 0 {
		return NewCategoricalColumn(name, []string{}, []bool{})
	}
	valid := make([]bool, len(cells))
	present := 0
	for i, v := range cells {
		if _, miss := missingTokens[v]; !miss {
			valid[i] = true
			present++
		}
	}

	nums := make([]float64, len(cells))
	numeric := true
	for i, v := range cells {
		if !valid[i] {
			nums[i] = math.NaN()
			continue
		}
		x, ok := parseNumber(v)
		if !ok {
			numeric = false
			break
		}
		nums[i] = x
	}
	if numeric {
		return NewNumericColumn(name, nums)
	}

	if present == len(cells) {
		bools := make([]bool, len(cells))
		isBool := true
		for i, v := range cells {
			b, ok := boolTokens[v]
			if !ok {
				isBool = false
				break
			}
			bools[i] = b
		}
		if isBool {
			return NewBooleanColumn(name, bools)
		}
	}
	if present > 0 && allBoolLiterals(cells, valid) {
		canon := make([]string, len(cells))
		for i, v := range cells {
			if valid[i] {
				canon[i] = strconv.FormatBool(boolTokens[v])
			}
		}
		col := NewCategoricalColumn(name, canon, valid)
		col.Boolean = true
		return col
	}
	return NewCategoricalColumn(name, cells, valid)
}

func allBoolLiterals(cells []string, valid []bool) bool {
	for i, v := range cells {
		if !valid[i] {
			continue
		}
		if _, ok := boolTokens[v]; !ok {
			return false
		}
	}
	return true
}

func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || strings.ContainsAny(raw, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	// Default to comma; using filename heuristic only to avoid reading twice.
	return ','
}
