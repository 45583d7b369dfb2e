package ml

import (
	"context"
	"sync"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions map[string]int
	failures    map[string]int
	timeouts    map[string]int
	latencySum  float64
	modelAge    map[string]float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		predictions: make(map[string]int),
		failures:    make(map[string]int),
		timeouts:    make(map[string]int),
		modelAge:    make(map[string]float64),
	}
}

func (m *MockMetrics) MLPredictionsInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[model]++
}

func (m *MockMetrics) MLFailuresInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[model]++
}

func (m *MockMetrics) MLLatencyObserve(model string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLTimeoutsInc(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts[model]++
}

func (m *MockMetrics) MLModelAgeSet(model string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge[model] = v
}

func (m *MockMetrics) Predictions(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions[model]
}

func (m *MockMetrics) Failures(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[model]
}

func (m *MockMetrics) Timeouts(model string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeouts[model]
}

func (m *MockMetrics) ModelAge(model string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.modelAge[model]
	return v, ok
}

// StubClassifier returns fixed answers and records the rows it saw.
type StubClassifier struct {
	mu     sync.Mutex
	Class  int
	Proba  []float64
	Err    error
	Inputs [][]float64
}

func (s *StubClassifier) Predict(ctx context.Context, rows [][]float64) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inputs = append(s.Inputs, rows...)
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]int, len(rows))
	for i := range out {
		out[i] = s.Class
	}
	return out, nil
}

func (s *StubClassifier) PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = append([]float64(nil), s.Proba...)
	}
	return out, nil
}

// StubSession returns Output for every row.
type StubSession struct {
	mu     sync.Mutex
	Output []float64
	Err    error
	Inputs [][]float32
}

func (s *StubSession) Run(ctx context.Context, rows [][]float32) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Inputs = append(s.Inputs, rows...)
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = append([]float64(nil), s.Output...)
	}
	return out, nil
}

// StubHandles builds a full set of stub handles.
func StubHandles(diabetes int, proba []float64, food, calorie int, sleep []float64) Handles {
	return Handles{
		Diabetes:     &StubClassifier{Class: diabetes, Proba: proba},
		FoodHealth:   &StubClassifier{Class: food},
		CalorieLevel: &StubClassifier{Class: calorie},
		SleepStress:  &StubSession{Output: sleep},
	}
}
