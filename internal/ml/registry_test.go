package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"healthmania-api/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diabetesVector() features.FeatureVector {
	return features.FeatureVector{6, 148, 72, 35, 0, 33.6, 0.627, 50}
}

func TestRegistry_DiabetesUsesScaledRow(t *testing.T) {
	h := StubHandles(1, []float64{0.3, 0.7}, 0, 0, nil)
	metrics := NewMockMetrics()
	r := NewRegistry(h, RefitPerRequest{}, metrics)

	out, err := r.Predict(context.Background(), ModelDiabetes, diabetesVector())
	require.NoError(t, err)

	assert.Equal(t, 1, out.Class)
	assert.Equal(t, []float64{0.3, 0.7}, out.Probabilities)
	stub := h.Diabetes.(*StubClassifier)
	require.Len(t, stub.Inputs, 1)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0}, stub.Inputs[0])
	assert.Equal(t, 1, metrics.Predictions(string(ModelDiabetes)))
}

func TestRegistry_DiabetesNeedsTwoProbabilities(t *testing.T) {
	r := NewRegistry(StubHandles(1, []float64{1}, 0, 0, nil), nil, nil)

	_, err := r.Predict(context.Background(), ModelDiabetes, diabetesVector())
	var inf *InferenceError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, ModelDiabetes, inf.Model)
}

func TestRegistry_FoodModels(t *testing.T) {
	r := NewRegistry(StubHandles(0, nil, 1, 2, nil), nil, nil)
	vec := features.FeatureVector{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	require.Equal(t, features.FoodSchema.Len(), len(vec))

	out, err := r.Predict(context.Background(), ModelFoodHealth, vec)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Class)

	out, err = r.Predict(context.Background(), ModelCalorieLevel, vec)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Class)
}

func TestRegistry_SleepStress(t *testing.T) {
	h := StubHandles(0, nil, 0, 0, []float64{6.2, 1.9})
	r := NewRegistry(h, nil, nil)
	vec := make(features.FeatureVector, features.SleepStressSchema.Len())
	vec[0] = 1.5

	out, err := r.Predict(context.Background(), ModelSleepStress, vec)
	require.NoError(t, err)
	assert.Equal(t, []float64{6.2, 1.9}, out.Values)

	stub := h.SleepStress.(*StubSession)
	require.Len(t, stub.Inputs, 1)
	assert.Equal(t, float32(1.5), stub.Inputs[0][0])
}

func TestRegistry_SleepStressNeedsTwoColumns(t *testing.T) {
	r := NewRegistry(StubHandles(0, nil, 0, 0, []float64{6.2}), nil, nil)
	vec := make(features.FeatureVector, features.SleepStressSchema.Len())

	_, err := r.Predict(context.Background(), ModelSleepStress, vec)
	assert.Error(t, err)
}

func TestRegistry_WrongWidth(t *testing.T) {
	r := NewRegistry(StubHandles(0, []float64{1, 0}, 0, 0, nil), nil, nil)

	_, err := r.Predict(context.Background(), ModelDiabetes, features.FeatureVector{1, 2})
	assert.Error(t, err)
}

func TestRegistry_MissingHandle(t *testing.T) {
	metrics := NewMockMetrics()
	r := NewRegistry(Handles{}, nil, metrics)
	assert.False(t, r.Ready())

	_, err := r.Predict(context.Background(), ModelDiabetes, diabetesVector())
	var unavailable *DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 0, metrics.Failures(string(ModelDiabetes)))
}

func TestRegistry_BackendFailureCountsTimeouts(t *testing.T) {
	h := StubHandles(0, nil, 0, 0, nil)
	h.FoodHealth = &StubClassifier{Err: fmt.Errorf("slow: %w", context.DeadlineExceeded)}
	metrics := NewMockMetrics()
	r := NewRegistry(h, nil, metrics)

	_, err := r.Predict(context.Background(), ModelFoodHealth, make(features.FeatureVector, features.FoodSchema.Len()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, metrics.Failures(string(ModelFoodHealth)))
	assert.Equal(t, 1, metrics.Timeouts(string(ModelFoodHealth)))
}

func TestRegistry_NilIsUnavailable(t *testing.T) {
	var r *Registry
	assert.False(t, r.Ready())
	assert.NoError(t, r.Close())

	_, err := r.Predict(context.Background(), ModelDiabetes, diabetesVector())
	var unavailable *DataUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestLoad_HTTPBackend(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "diabetes.pkl")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0644))

	metrics := NewMockMetrics()
	r, err := Load(context.Background(), LoadConfig{
		Backend:      BackendHTTP,
		Paths:        map[ModelID]string{ModelDiabetes: artifact},
		InferenceURL: "http://127.0.0.1:1",
		Timeout:      time.Second,
	}, metrics)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Ready())
	assert.Equal(t, ScalingRefit, r.Scaling())
	_, ok := metrics.ModelAge(string(ModelDiabetes))
	assert.True(t, ok)
}

func TestLoad_FeatureOrderMismatch(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "diabetes.pkl")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(metadataPath(artifact), []byte(`{"features":["Glucose","Pregnancies"]}`), 0644))

	_, err := Load(context.Background(), LoadConfig{
		Backend:      BackendHTTP,
		Paths:        map[ModelID]string{ModelDiabetes: artifact},
		InferenceURL: "http://127.0.0.1:1",
	}, nil)
	assert.Error(t, err)
}

func TestLoad_PythonBackendNeedsArtifacts(t *testing.T) {
	_, err := Load(context.Background(), LoadConfig{
		Backend: BackendPython,
		Paths:   map[ModelID]string{ModelDiabetes: filepath.Join(t.TempDir(), "missing.pkl")},
	}, nil)
	assert.Error(t, err)
}

func TestLoad_UnknownBackend(t *testing.T) {
	_, err := Load(context.Background(), LoadConfig{Backend: "grpc"}, nil)
	assert.Error(t, err)
}
