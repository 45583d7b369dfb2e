package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"healthmania-api/internal/features"
)

// Scaling strategy names accepted in configuration.
const (
	ScalingRefit     = "refit"
	ScalingPersisted = "persisted"
)

// ScalingStrategy prepares the diabetes row before inference.
type ScalingStrategy interface {
	Name() string
	Transform(vec features.FeatureVector) (features.FeatureVector, error)
}

// RobustScaler centres on the median and divides by the interquartile range.
// A zero range is replaced by 1, matching scikit-learn.
type RobustScaler struct {
	Center []float64 `json:"center"`
	Scale  []float64 `json:"scale"`
}

// FitRobustScaler fits a scaler on the given rows, column by column.
func FitRobustScaler(rows [][]float64) (RobustScaler, error) {
	if len(rows) == 0 {
		return RobustScaler{}, fmt.Errorf("cannot fit scaler on zero rows")
	}
	width := len(rows[0])
	s := RobustScaler{Center: make([]float64, width), Scale: make([]float64, width)}

	col := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i, row := range rows {
			if len(row) != width {
				return RobustScaler{}, fmt.Errorf("row %d has %d values, expected %d", i, len(row), width)
			}
			col[i] = row[j]
		}
		sort.Float64s(col)
		s.Center[j] = percentile(col, 0.5)
		iqr := percentile(col, 0.75) - percentile(col, 0.25)
		if iqr == 0 {
			iqr = 1
		}
		s.Scale[j] = iqr
	}
	return s, nil
}

// percentile uses linear interpolation over sorted values.
func percentile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func (s RobustScaler) Transform(vec features.FeatureVector) (features.FeatureVector, error) {
	if len(vec) != len(s.Center) || len(vec) != len(s.Scale) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Center), len(vec))
	}
	out := make(features.FeatureVector, len(vec))
	for i, x := range vec {
		out[i] = (x - s.Center[i]) / s.Scale[i]
	}
	return out, nil
}

// RefitPerRequest fits a fresh scaler on the single incoming row every call.
// With one row the median is the value itself and the range is zero, so every
// feature comes out as 0. This reproduces how the diabetes model has always
// been served; PersistedFromTraining is the statistically sound alternative.
type RefitPerRequest struct{}

func (RefitPerRequest) Name() string { return ScalingRefit }

func (RefitPerRequest) Transform(vec features.FeatureVector) (features.FeatureVector, error) {
	scaler, err := FitRobustScaler([][]float64{vec})
	if err != nil {
		return nil, err
	}
	return scaler.Transform(vec)
}

// PersistedFromTraining applies a scaler fitted at training time.
type PersistedFromTraining struct {
	Scaler RobustScaler
}

func (PersistedFromTraining) Name() string { return ScalingPersisted }

func (p PersistedFromTraining) Transform(vec features.FeatureVector) (features.FeatureVector, error) {
	return p.Scaler.Transform(vec)
}

// LoadPersistedScaler reads {"center": [...], "scale": [...]} from path.
func LoadPersistedScaler(path string, width int) (PersistedFromTraining, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PersistedFromTraining{}, fmt.Errorf("failed to read scaler file %s: %w", path, err)
	}

	var s RobustScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return PersistedFromTraining{}, fmt.Errorf("failed to parse scaler file %s: %w", path, err)
	}
	if len(s.Center) != width || len(s.Scale) != width {
		return PersistedFromTraining{}, fmt.Errorf("scaler file %s has %d/%d values, expected %d",
			path, len(s.Center), len(s.Scale), width)
	}
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return PersistedFromTraining{Scaler: s}, nil
}

// NewScalingStrategy resolves a configured strategy name.
func NewScalingStrategy(name, scalerPath string, width int) (ScalingStrategy, error) {
	switch name {
	case "", ScalingRefit:
		return RefitPerRequest{}, nil
	case ScalingPersisted:
		if scalerPath == "" {
			return nil, fmt.Errorf("scaling %q requires a scaler path", name)
		}
		return LoadPersistedScaler(scalerPath, width)
	default:
		return nil, fmt.Errorf("unknown scaling strategy %q", name)
	}
}
