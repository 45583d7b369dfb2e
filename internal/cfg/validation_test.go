package cfg

import (
	"strings"
	"testing"
	"time"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Port:     8000,
		LogLevel: "info",
		Models: ModelPaths{
			Diabetes:     "diabetes.pkl",
			FoodHealth:   "food.pkl",
			CalorieLevel: "calorie.pkl",
			SleepStress:  "sleep.onnx",
		},
		ModelBackend:     "python",
		InferenceTimeout: 5 * time.Second,
		Scaling:          "refit",
		NutritionPath:    "recommend_data.csv",
		RateLimit:        50,
		RateBurst:        100,
		CORSOrigins:      []string{"*"},
		RecommendLimit:   10,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"port zero", func(s *Settings) { s.Port = 0 }, "port"},
		{"port too high", func(s *Settings) { s.Port = 65536 }, "port"},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "log level"},
		{"missing model path", func(s *Settings) { s.Models.SleepStress = "" }, "model paths"},
		{"http without url", func(s *Settings) { s.ModelBackend = "http" }, "inference URL"},
		{"http with bad scheme", func(s *Settings) {
			s.ModelBackend = "http"
			s.InferenceURL = "inference:8500"
		}, "http://"},
		{"unknown backend", func(s *Settings) { s.ModelBackend = "tf" }, "model backend"},
		{"timeout too short", func(s *Settings) { s.InferenceTimeout = time.Millisecond }, "inference timeout"},
		{"timeout too long", func(s *Settings) { s.InferenceTimeout = 2 * time.Minute }, "inference timeout"},
		{"persisted without scaler", func(s *Settings) { s.Scaling = "persisted" }, "scaler path"},
		{"unknown scaling", func(s *Settings) { s.Scaling = "standard" }, "scaling"},
		{"empty nutrition path", func(s *Settings) { s.NutritionPath = "" }, "nutrition"},
		{"zero rate limit", func(s *Settings) { s.RateLimit = 0 }, "rate limit"},
		{"zero burst", func(s *Settings) { s.RateBurst = 0 }, "rate burst"},
		{"zero recommend limit", func(s *Settings) { s.RecommendLimit = 0 }, "recommendation limit"},
		{"no cors origins", func(s *Settings) { s.CORSOrigins = nil }, "CORS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createValidSettings()
			tt.mutate(s)

			err := validateSettings(s)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSettings_HTTPBackendSkipsModelPaths(t *testing.T) {
	s := createValidSettings()
	s.ModelBackend = "http"
	s.InferenceURL = "https://inference.example"
	s.Models = ModelPaths{}

	if err := validateSettings(s); err != nil {
		t.Errorf("expected http backend without local paths to pass, got %v", err)
	}
}

func TestValidateSettings_PersistedWithScaler(t *testing.T) {
	s := createValidSettings()
	s.Scaling = "persisted"
	s.ScalerPath = "scaler.json"

	if err := validateSettings(s); err != nil {
		t.Errorf("expected persisted scaling with scaler to pass, got %v", err)
	}
}
