package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/csvinsight-cli/internal/testutil"
)

func TestLogisticRegressionSeparatesBinary(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 20, 21, 22, 23})
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	m := NewLogisticRegression()
	m.Logger = testutil.NewTestLogger(t)
	require.NoError(t, m.Fit(X, y))

	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, got)
	assert.Equal(t, 2, m.Classes())
	assert.Positive(t, m.Iterations())
}

func TestLogisticRegressionTwoFeatures(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		8, 9,
		9, 8,
		9, 9,
	})
	y := []int{1, 1, 1, 0, 0, 0}

	m := NewLogisticRegression()
	m.Logger = testutil.NewTestLogger(t)
	require.NoError(t, m.Fit(X, y))
	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, y, got)

	z, err := m.DecisionFunction(mat.NewDense(2, 2, []float64{-5, -5, 20, 20}))
	require.NoError(t, err)
	assert.Greater(t, z.At(0, 0), 0.0)
	assert.Less(t, z.At(1, 0), 0.0)
}

func TestLogisticRegressionMulticlass(t *testing.T) {
	X := mat.NewDense(9, 1, []float64{0, 1, 2, 20, 21, 22, 40, 41, 42})
	y := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}

	m := NewLogisticRegression()
	m.Logger = testutil.NewTestLogger(t)
	m.MaxIter = 1000
	require.NoError(t, m.Fit(X, y))

	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Len(t, got, 9)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 2, got[8])
	assert.Equal(t, 3, m.Classes())
}

func TestLogisticRegressionIterationLimitIsNotFatal(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := []int{0, 0, 1, 1}

	m := NewLogisticRegression()
	m.Logger = testutil.NewTestLogger(t)
	m.MaxIter = 1
	m.Tol = 1e-300
	require.NoError(t, m.Fit(X, y))
	assert.False(t, m.Converged())

	got, err := m.Predict(X)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestLogisticRegressionErrors(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})

	err := NewLogisticRegression().Fit(X, []int{0, 0, 0})
	assert.ErrorIs(t, err, ErrSingleClass)

	err = NewLogisticRegression().Fit(X, []int{0, 1})
	assert.ErrorContains(t, err, "3 rows but y has 2 labels")

	err = NewLogisticRegression().Fit(X, []int{0, -1, 1})
	assert.ErrorContains(t, err, "negative class index")

	bad := NewLogisticRegression()
	bad.C = 0
	assert.ErrorContains(t, bad.Fit(X, []int{0, 1, 0}), "C must be positive")

	_, err = NewLogisticRegression().Predict(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	fitted := NewLogisticRegression()
	require.NoError(t, fitted.Fit(X, []int{0, 1, 1}))
	_, err = fitted.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.ErrorContains(t, err, "expects 1")
}

func TestObjectiveGradientMatchesFiniteDifference(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		0.5, -1,
		1.5, 2,
		-0.3, 0.7,
		2.2, -0.4,
		1.0, 1.0,
	})
	for _, tc := range []struct {
		name string
		y    []int
		rows int
	}{
		{"binary", []int{0, 1, 0, 1, 1}, 1},
		{"multinomial", []int{0, 1, 2, 1, 0}, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := &objective{x: X, y: tc.y, n: 5, p: 2, rows: tc.rows, alpha: 0.2}
			params := make([]float64, tc.rows*3)
			for i := range params {
				params[i] = 0.1 * float64(i+1) * math.Pow(-1, float64(i))
			}
			grad := make([]float64, len(params))
			o.gradient(grad, params)

			const h = 1e-6
			for i := range params {
				plus := append([]float64(nil), params...)
				minus := append([]float64(nil), params...)
				plus[i] += h
				minus[i] -= h
				num := (o.value(plus) - o.value(minus)) / (2 * h)
				assert.InDelta(t, num, grad[i], 1e-5, "param %d", i)
			}
		})
	}
}
