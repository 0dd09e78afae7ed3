package analysis

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/csvinsight-cli/internal/report"
)

// ColumnSummary is either a NumericSummary or a CategoricalSummary.
type ColumnSummary interface {
	report.Recorder
	Column() string
}

// NumericSummary describes a numeric column over its present values.
type NumericSummary struct {
	Name  string
	Count int
	Mean  float64
	Min   float64
	Max   float64
	Sum   float64
}

func (s NumericSummary) Column() string { return s.Name }

// Record lists the statistics in output order.
func (s NumericSummary) Record() *report.Object {
	return report.NewObject().
		Set("count", s.Count).
		Set("mean", s.Mean).
		Set("min", s.Min).
		Set("max", s.Max).
		Set("sum", s.Sum)
}

// CategoricalSummary describes a categorical column. Top is nil when the
// column has no values. Boolean columns with missing entries report Top as
// a JSON boolean.
type CategoricalSummary struct {
	Name    string
	Count   int
	Unique  int
	Top     *string
	Freq    int
	Boolean bool
}

func (s CategoricalSummary) Column() string { return s.Name }

func (s CategoricalSummary) top() any {
	if s.Top == nil {
		return nil
	}
	if s.Boolean {
		if b, err := strconv.ParseBool(*s.Top); err == nil {
			return b
		}
	}
	return *s.Top
}

// Record lists the statistics in output order.
func (s CategoricalSummary) Record() *report.Object {
	return report.NewObject().
		Set("count", s.Count).
		Set("unique", s.Unique).
		Set("top", s.top()).
		Set("freq", s.Freq)
}

// Summarize returns numeric summaries in table order followed by categorical
// summaries in table order. Boolean columns are left out.
func Summarize(t *Table) []ColumnSummary {
	var nums, cats []ColumnSummary
	for _, c := range t.Columns {
		switch col := c.(type) {
		case *NumericColumn:
			nums = append(nums, SummarizeNumeric(col))
		case *CategoricalColumn:
			cats = append(cats, SummarizeCategorical(col))
		}
	}
	return append(nums, cats...)
}

// SummarizeNumeric skips missing values. With no values left, mean, min and
// max are NaN and sum is 0.
func SummarizeNumeric(c *NumericColumn) NumericSummary {
	vals := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	s := NumericSummary{Name: c.Name(), Count: len(vals)}
	if len(vals) == 0 {
		s.Mean, s.Min, s.Max = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = stat.Mean(vals, nil)
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Sum = floats.Sum(vals)
	return s
}

// SummarizeCategorical counts present values. Among values tied for the
// highest count, the one seen first wins.
func SummarizeCategorical(c *CategoricalColumn) CategoricalSummary {
	counts := make(map[string]int)
	var order []string
	s := CategoricalSummary{Name: c.Name(), Boolean: c.Boolean}
	for i, v := range c.Values {
		if !c.Valid[i] {
			continue
		}
		s.Count++
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	s.Unique = len(order)
	for _, v := range order {
		if counts[v] > s.Freq {
			top := v
			s.Top = &top
			s.Freq = counts[v]
		}
	}
	return s
}
