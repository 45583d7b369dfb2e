package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// backendClassifier is a tree-ensemble handle served by a Backend.
type backendClassifier struct {
	backend Backend
	model   string
}

func NewClassifier(b Backend, model string) Classifier {
	return &backendClassifier{backend: b, model: model}
}

func (c *backendClassifier) Predict(ctx context.Context, rows [][]float64) ([]int, error) {
	raw, err := c.backend.Invoke(ctx, c.model, opPredict, rows)
	if err != nil {
		return nil, err
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode %s predictions: %w", c.model, err)
	}
	if len(values) != len(rows) {
		return nil, fmt.Errorf("expected %d predictions from %s, got %d", len(rows), c.model, len(values))
	}
	classes := make([]int, len(values))
	for i, v := range values {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("model %s returned non-integer class %v", c.model, v)
		}
		classes[i] = int(v)
	}
	return classes, nil
}

func (c *backendClassifier) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	raw, err := c.backend.Invoke(ctx, c.model, opPredictProba, rows)
	if err != nil {
		return nil, err
	}
	var probs [][]float64
	if err := json.Unmarshal(raw, &probs); err != nil {
		return nil, fmt.Errorf("decode %s probabilities: %w", c.model, err)
	}
	if len(probs) != len(rows) {
		return nil, fmt.Errorf("expected %d probability rows from %s, got %d", len(rows), c.model, len(probs))
	}
	return probs, nil
}

// backendSession is a graph-inference handle served by a Backend.
type backendSession struct {
	backend Backend
	model   string
}

func NewSession(b Backend, model string) Session {
	return &backendSession{backend: b, model: model}
}

func (s *backendSession) Run(ctx context.Context, rows [][]float32) ([][]float64, error) {
	raw, err := s.backend.Invoke(ctx, s.model, opRun, rows)
	if err != nil {
		return nil, err
	}
	var out [][]float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s output: %w", s.model, err)
	}
	if len(out) != len(rows) {
		return nil, fmt.Errorf("expected %d output rows from %s, got %d", len(rows), s.model, len(out))
	}
	return out, nil
}
