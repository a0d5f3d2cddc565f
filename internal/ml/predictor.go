// Package ml loads trained model artifacts and binds them to the feature
// columns produced by the analysis packages.
package ml

import (
	"fmt"
	"strings"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
)

// Predictor is an opaque trained model
type Predictor interface {
	Predict(features []float64) (float64, error)
	FeatureNames() []string
}

// Classifier is a Predictor whose output maps to a label
type Classifier interface {
	Predictor
	Classify(features []float64) (string, error)
}

// Bound is a Predictor whose feature columns were checked against the
// columns the feature builder produces
type Bound struct {
	Name      string
	predictor Predictor
	columns   []string
}

// Bind checks that p expects exactly columns, by name and order. A mismatch is
// a ConfigurationError and the model must not be used.
func Bind(name string, p Predictor, columns []string) (*Bound, error) {
	if p == nil {
		return nil, &errorutil.ConfigurationError{Model: name, Reason: "no predictor"}
	}

	got := p.FeatureNames()
	if len(got) != len(columns) {
		return nil, &errorutil.ConfigurationError{
			Model:  name,
			Reason: fmt.Sprintf("expects %d feature columns, builder produces %d", len(got), len(columns)),
		}
	}
	for i := range columns {
		if got[i] != columns[i] {
			return nil, &errorutil.ConfigurationError{
				Model: name,
				Reason: fmt.Sprintf("column %d is %q, builder produces %q (expected order: %s)",
					i, got[i], columns[i], strings.Join(columns, ",")),
			}
		}
	}

	return &Bound{Name: name, predictor: p, columns: append([]string(nil), columns...)}, nil
}

// Predict runs the model on one feature row
func (b *Bound) Predict(row []float64) (float64, error) {
	if len(row) != len(b.columns) {
		return 0, errorutil.NewValidationError("features",
			fmt.Sprintf("row has %d values, model %s expects %d", len(row), b.Name, len(b.columns)))
	}
	return b.predictor.Predict(row)
}

// Classify labels one feature row. The bound predictor must be a Classifier.
func (b *Bound) Classify(row []float64) (string, error) {
	c, ok := b.predictor.(Classifier)
	if !ok {
		return "", &errorutil.ConfigurationError{Model: b.Name, Reason: "model is not a classifier"}
	}
	if len(row) != len(b.columns) {
		return "", errorutil.NewValidationError("features",
			fmt.Sprintf("row has %d values, model %s expects %d", len(row), b.Name, len(b.columns)))
	}
	return c.Classify(row)
}

// Columns returns the bound feature columns
func (b *Bound) Columns() []string {
	return b.columns
}

// Metric returns a recorded training metric when the predictor exposes one
func (b *Bound) Metric(name string) (float64, bool) {
	if m, ok := b.predictor.(interface{ Metric(string) (float64, bool) }); ok {
		return m.Metric(name)
	}
	return 0, false
}

// LoadBound reads the artifact at path and binds it to columns. An empty path
// means the model is not configured and yields (nil, nil).
func LoadBound(name, path string, columns []string) (*Bound, error) {
	if path == "" {
		return nil, nil
	}
	m, err := LoadModel(path)
	if err != nil {
		return nil, &errorutil.ConfigurationError{Model: name, Reason: err.Error()}
	}
	return Bind(name, m, columns)
}
