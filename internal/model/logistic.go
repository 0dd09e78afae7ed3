package model

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is an L2-regularized logistic regression classifier
// fitted with L-BFGS. Two classes use the sigmoid loss, more than two the
// multinomial (softmax) loss. The intercept is not penalized and inputs are
// used as given, without scaling.
type LogisticRegression struct {
	// C is the inverse regularization strength.
	C float64
	// MaxIter caps L-BFGS major iterations.
	MaxIter int
	// Tol stops when the gradient's infinity norm drops below it.
	Tol float64
	// Logger receives convergence warnings. Defaults to slog.Default().
	Logger *slog.Logger

	coef      *mat.Dense // rows x features
	intercept []float64
	classes   int
	status    optimize.Status
	iters     int
}

// NewLogisticRegression returns a model with C=1, 100 iterations and 1e-4 tolerance.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: 100, Tol: 1e-4}
}

var _ Classifier = (*LogisticRegression)(nil)

// Fit trains on X (n x p) and class indices y in [0, k).
func (m *LogisticRegression) Fit(X mat.Matrix, y []int) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return fmt.Errorf("model: empty training matrix (%d x %d)", n, p)
	}
	if len(y) != n {
		return fmt.Errorf("model: X has %d rows but y has %d labels", n, len(y))
	}
	if m.C <= 0 {
		return fmt.Errorf("model: C must be positive, got %v", m.C)
	}
	k := 0
	for _, c := range y {
		if c < 0 {
			return fmt.Errorf("model: negative class index %d", c)
		}
		if c+1 > k {
			k = c + 1
		}
	}
	if k < 2 {
		return ErrSingleClass
	}

	rows := k
	if k == 2 {
		rows = 1
	}
	obj := &objective{
		x:     X,
		y:     y,
		n:     n,
		p:     p,
		rows:  rows,
		alpha: 1 / (m.C * float64(n)),
	}
	settings := &optimize.Settings{
		GradientThreshold: m.Tol,
		MajorIterations:   m.MaxIter,
	}
	problem := optimize.Problem{Func: obj.value, Grad: obj.gradient}
	res, err := optimize.Minimize(problem, make([]float64, rows*(p+1)), settings, &optimize.LBFGS{})
	if res == nil {
		return fmt.Errorf("model: optimize: %w", err)
	}
	if err != nil && res.Status != optimize.IterationLimit {
		return fmt.Errorf("model: optimize: %w", err)
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("model: optimize diverged (status %v)", res.Status)
		}
	}
	if res.Status == optimize.IterationLimit {
		m.logger().Warn("logistic regression did not converge; increase the number of iterations",
			"max_iter", m.MaxIter)
	}

	w, b := obj.unpack(res.X)
	m.coef = mat.DenseCopyOf(w)
	m.intercept = append([]float64(nil), b...)
	m.classes = k
	m.status = res.Status
	m.iters = res.MajorIterations
	return nil
}

// Predict returns the most likely class index for each row of X.
func (m *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	z, err := m.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	n, rows := z.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if rows == 1 {
			if z.At(i, 0) > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = floats.MaxIdx(z.RawRowView(i))
	}
	return out, nil
}

// DecisionFunction returns the linear scores X·Wᵀ + b, one column per
// coefficient row (a single column for binary problems).
func (m *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if m.coef == nil {
		return nil, ErrNotFitted
	}
	_, p := X.Dims()
	if _, cp := m.coef.Dims(); cp != p {
		return nil, fmt.Errorf("model: X has %d features, model expects %d", p, cp)
	}
	return linear(X, m.coef, m.intercept), nil
}

// Classes returns the number of classes seen by Fit.
func (m *LogisticRegression) Classes() int { return m.classes }

// Iterations returns the number of L-BFGS major iterations of the last Fit.
func (m *LogisticRegression) Iterations() int { return m.iters }

// Converged reports whether the last Fit stopped before the iteration limit.
func (m *LogisticRegression) Converged() bool {
	return m.coef != nil && m.status != optimize.IterationLimit
}

func (m *LogisticRegression) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// linear computes X·Wᵀ + b.
func linear(X mat.Matrix, w *mat.Dense, b []float64) *mat.Dense {
	n, _ := X.Dims()
	rows, _ := w.Dims()
	var z mat.Dense
	z.Mul(X, w.T())
	for i := 0; i < n; i++ {
		for r := 0; r < rows; r++ {
			z.Set(i, r, z.At(i, r)+b[r])
		}
	}
	return &z
}

// objective is the mean log-loss plus alpha/2·‖W‖². Parameters are laid out
// as rows*p weights (row-major) followed by rows intercepts.
type objective struct {
	x     mat.Matrix
	y     []int
	n, p  int
	rows  int
	alpha float64
}

func (o *objective) unpack(params []float64) (*mat.Dense, []float64) {
	nw := o.rows * o.p
	return mat.NewDense(o.rows, o.p, params[:nw]), params[nw:]
}

// residuals returns the summed loss and dLoss/dz per sample.
func (o *objective) residuals(params []float64) (float64, *mat.Dense) {
	w, b := o.unpack(params)
	z := linear(o.x, w, b)
	loss := 0.0
	for i := 0; i < o.n; i++ {
		row := z.RawRowView(i)
		if o.rows == 1 {
			zi := row[0]
			yi := float64(o.y[i])
			loss += softplus(zi) - yi*zi
			row[0] = sigmoid(zi) - yi
			continue
		}
		lse := floats.LogSumExp(row)
		loss += lse - row[o.y[i]]
		for r := range row {
			row[r] = math.Exp(row[r] - lse)
		}
		row[o.y[i]] -= 1
	}
	return loss, z
}

func (o *objective) value(params []float64) float64 {
	loss, _ := o.residuals(params)
	w := params[:o.rows*o.p]
	return loss/float64(o.n) + 0.5*o.alpha*floats.Dot(w, w)
}

func (o *objective) gradient(grad, params []float64) {
	_, dz := o.residuals(params)
	inv := 1 / float64(o.n)
	nw := o.rows * o.p
	gw := mat.NewDense(o.rows, o.p, grad[:nw])
	gw.Mul(dz.T(), o.x)
	gw.Scale(inv, gw)
	floats.AddScaled(grad[:nw], o.alpha, params[:nw])
	for r := 0; r < o.rows; r++ {
		grad[nw+r] = inv * floats.Sum(mat.Col(nil, r, dz))
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
