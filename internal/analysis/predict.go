package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/csvinsight-cli/internal/model"
)

// ErrNoFeatures is reported when the table has no numeric column besides the label.
var ErrNoFeatures = errors.New("No numeric features to train model.")

// LabelNotFoundError is reported when the label column is absent.
type LabelNotFoundError struct {
	Label string
}

func (e *LabelNotFoundError) Error() string {
	return fmt.Sprintf("'%s' column not found. Cannot predict.", e.Label)
}

// Outcome is the result of the modeling stage: either one prediction per row
// or the reason there are none.
type Outcome struct {
	Predictions []any
	Err         error
}

// Predict fits a logistic regression of the label column on every other
// numeric column and predicts the same rows it was fitted on. Failures are
// returned in Outcome.Err; Predict itself never fails.
func Predict(t *Table, opt Options) Outcome {
	log := opt.logger()
	label, labelIdx, ok := t.Column(opt.Label)
	if !ok {
		return Outcome{Err: &LabelNotFoundError{Label: opt.Label}}
	}

	var features []*NumericColumn
	for i, c := range t.Columns {
		if i == labelIdx {
			continue
		}
		if nc, ok := c.(*NumericColumn); ok {
			features = append(features, nc)
		}
	}
	if len(features) == 0 {
		return Outcome{Err: ErrNoFeatures}
	}

	preds, err := fitPredict(t.Rows, features, label, opt)
	if err != nil {
		log.Warn("classifier skipped", "label", opt.Label, "err", err)
		return Outcome{Err: err}
	}
	log.Debug("classifier fitted", "label", opt.Label, "features", len(features), "rows", t.Rows)
	return Outcome{Predictions: preds}
}

func fitPredict(rows int, features []*NumericColumn, label Column, opt Options) ([]any, error) {
	p := len(features)
	if rows == 0 {
		return nil, fmt.Errorf("Found array with 0 sample(s) (shape=(0, %d)) while a minimum of 1 is required by LogisticRegression.", p)
	}
	data := make([]float64, rows*p)
	for j, f := range features {
		for i, v := range f.Values {
			switch {
			case math.IsNaN(v):
				return nil, errors.New("Input X contains NaN.")
			case math.IsInf(v, 0):
				return nil, errors.New("Input X contains infinity or a value too large for dtype('float64').")
			}
			data[i*p+j] = v
		}
	}
	X := mat.NewDense(rows, p, data)

	classes, y, err := encodeLabels(label)
	if err != nil {
		return nil, err
	}
	if len(classes) < 2 {
		return nil, fmt.Errorf("This solver needs samples of at least 2 classes in the data, but the data contains only one class: %v", classes[0])
	}

	m := model.NewLogisticRegression()
	m.C = opt.C
	m.MaxIter = opt.MaxIter
	m.Tol = opt.Tol
	m.Logger = opt.logger()
	if err := m.Fit(X, y); err != nil {
		return nil, err
	}
	idx, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(idx))
	for i, k := range idx {
		out[i] = classes[k]
	}
	return out, nil
}

// encodeLabels maps label values to class indices in sorted class order.
// Classes keep the column's value type: int64 for integer columns, float64
// for other numeric columns, bool and string otherwise.
func encodeLabels(c Column) ([]any, []int, error) {
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) {
			return nil, nil, errors.New("Input y contains NaN.")
		}
	}
	switch col := c.(type) {
	case *NumericColumn:
		for _, v := range col.Values {
			if math.IsInf(v, 0) {
				return nil, nil, errors.New("Input y contains infinity or a value too large for dtype('float64').")
			}
			if v != math.Trunc(v) {
				return nil, nil, errors.New("Unknown label type: continuous. Maybe you are trying to fit a classifier, which expects discrete classes on a regression target with continuous values.")
			}
		}
		uniq := uniqueSorted(col.Values, func(a, b float64) bool { return a < b })
		classes := make([]any, len(uniq))
		for i, v := range uniq {
			if col.Integer {
				classes[i] = int64(v)
			} else {
				classes[i] = v
			}
		}
		return classes, indexOf(col.Values, uniq), nil
	case *BooleanColumn:
		uniq := uniqueSorted(col.Values, func(a, b bool) bool { return !a && b })
		classes := make([]any, len(uniq))
		for i, v := range uniq {
			classes[i] = v
		}
		return classes, indexOf(col.Values, uniq), nil
	case *CategoricalColumn:
		uniq := uniqueSorted(col.Values, func(a, b string) bool { return a < b })
		classes := make([]any, len(uniq))
		for i, v := range uniq {
			classes[i] = v
		}
		return classes, indexOf(col.Values, uniq), nil
	}
	return nil, nil, fmt.Errorf("unsupported label column type %T", c)
}

func uniqueSorted[T comparable](vals []T, less func(a, b T) bool) []T {
	seen := make(map[T]struct{}, len(vals))
	var out []T
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func indexOf[T comparable](vals, classes []T) []int {
	pos := make(map[T]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = pos[v]
	}
	return out
}
