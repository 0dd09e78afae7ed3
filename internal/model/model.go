// Package model holds the classifiers fitted by the analysis pipeline.
package model

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Classifier is a supervised model over class indices 0..k-1.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
}

var (
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("model: not fitted")
	// ErrSingleClass is returned by Fit when y holds fewer than two classes.
	ErrSingleClass = errors.New("model: at least 2 classes are required")
)
