package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model kinds
const (
	KindRegressor  = "regressor"
	KindClassifier = "classifier"
	KindOutlier    = "outlier"
)

// Artifact is the persisted form of a trained linear model
type Artifact struct {
	Name           string             `json:"name"`
	Version        string             `json:"version"`
	Kind           string             `json:"kind"`
	FeatureColumns []string           `json:"feature_columns"`
	Coefficients   []float64          `json:"coefficients"`
	Intercept      float64            `json:"intercept"`
	Classes        []string           `json:"classes,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// LinearModel scores a feature row as intercept + coefficients·row
type LinearModel struct {
	artifact Artifact
}

// LoadModel reads and validates an artifact file
func LoadModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseModel(data)
}

// ParseModel validates an artifact held in memory
func ParseModel(data []byte) (*LinearModel, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &LinearModel{artifact: a}, nil
}

func (a Artifact) validate() error {
	switch a.Kind {
	case KindRegressor, KindOutlier:
	case KindClassifier:
		if len(a.Classes) == 0 {
			return fmt.Errorf("model %s: classifier without classes", a.Name)
		}
	default:
		return fmt.Errorf("model %s: unknown kind %q", a.Name, a.Kind)
	}
	if len(a.FeatureColumns) == 0 {
		return fmt.Errorf("model %s: no feature columns", a.Name)
	}
	if len(a.Coefficients) != len(a.FeatureColumns) {
		return fmt.Errorf("model %s: %d coefficients for %d columns", a.Name, len(a.Coefficients), len(a.FeatureColumns))
	}
	return nil
}

// NewLinearModel wraps an artifact built in code
func NewLinearModel(a Artifact) (*LinearModel, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &LinearModel{artifact: a}, nil
}

// Predict returns intercept + coefficients·features
func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.artifact.Coefficients) {
		return 0, fmt.Errorf("model %s: got %d features, want %d", m.artifact.Name, len(features), len(m.artifact.Coefficients))
	}
	score := m.artifact.Intercept
	for i, c := range m.artifact.Coefficients {
		score += c * features[i]
	}
	return score, nil
}

// Classify maps the rounded score to a class index, clamped to the class range
func (m *LinearModel) Classify(features []float64) (string, error) {
	if m.artifact.Kind != KindClassifier {
		return "", fmt.Errorf("model %s is a %s, not a classifier", m.artifact.Name, m.artifact.Kind)
	}
	score, err := m.Predict(features)
	if err != nil {
		return "", err
	}
	idx := int(math.Round(score))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.artifact.Classes) {
		idx = len(m.artifact.Classes) - 1
	}
	return m.artifact.Classes[idx], nil
}

// FeatureNames returns the artifact's feature columns in order
func (m *LinearModel) FeatureNames() []string {
	return m.artifact.FeatureColumns
}

// Metric returns a recorded training metric such as r2
func (m *LinearModel) Metric(name string) (float64, bool) {
	v, ok := m.artifact.Metrics[name]
	return v, ok
}

// Artifact returns the loaded artifact
func (m *LinearModel) Artifact() Artifact {
	return m.artifact
}
