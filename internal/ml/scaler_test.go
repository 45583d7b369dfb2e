package ml

import (
	"os"
	"path/filepath"
	"testing"

	"healthmania-api/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefitPerRequest_ZeroesSingleRow(t *testing.T) {
	vec := features.FeatureVector{6, 148, 72, 35, 0, 33.6, 0.627, 50}

	out, err := RefitPerRequest{}.Transform(vec)
	require.NoError(t, err)
	assert.Equal(t, features.FeatureVector{0, 0, 0, 0, 0, 0, 0, 0}, out)
	assert.Equal(t, 148.0, vec[1], "input must not be modified")
}

func TestFitRobustScaler(t *testing.T) {
	s, err := FitRobustScaler([][]float64{{1, 10}, {2, 10}, {3, 10}, {4, 10}, {5, 10}})
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 10}, s.Center)
	assert.Equal(t, []float64{2, 1}, s.Scale)

	out, err := s.Transform(features.FeatureVector{5, 12})
	require.NoError(t, err)
	assert.Equal(t, features.FeatureVector{1, 2}, out)
}

func TestFitRobustScaler_Errors(t *testing.T) {
	_, err := FitRobustScaler(nil)
	assert.Error(t, err)

	_, err = FitRobustScaler([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestLoadPersistedScaler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scaler.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"center":[1,2],"scale":[2,0]}`), 0644))

	p, err := LoadPersistedScaler(path, 2)
	require.NoError(t, err)
	assert.Equal(t, ScalingPersisted, p.Name())

	out, err := p.Transform(features.FeatureVector{3, 5})
	require.NoError(t, err)
	assert.Equal(t, features.FeatureVector{1, 3}, out)

	_, err = LoadPersistedScaler(path, 3)
	assert.Error(t, err)
}

func TestNewScalingStrategy(t *testing.T) {
	s, err := NewScalingStrategy("", "", 8)
	require.NoError(t, err)
	assert.Equal(t, ScalingRefit, s.Name())

	_, err = NewScalingStrategy(ScalingPersisted, "", 8)
	assert.Error(t, err)

	_, err = NewScalingStrategy("minmax", "", 8)
	assert.Error(t, err)
}
