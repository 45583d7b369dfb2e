// Package health runs the four HealthMania endpoints: it validates and encodes
// requests, dispatches them to the model registry or the nutrition calculator,
// and assembles the decoded responses.
package health

import (
	"context"
	"encoding/json"
	"fmt"

	"healthmania-api/internal/common"
	"healthmania-api/internal/features"
	"healthmania-api/internal/ml"
	"healthmania-api/internal/nutrition"
	"healthmania-api/internal/storage"

	"github.com/rs/zerolog/log"
)

// Predictor is the part of ml.Registry the service depends on.
type Predictor interface {
	Predict(ctx context.Context, id ml.ModelID, vec features.FeatureVector) (ml.RawOutput, error)
}

// Recorder persists served predictions.
type Recorder interface {
	StorePrediction(rec storage.PredictionRecord) error
}

type HistoryMetrics interface {
	HistoryWriteInc(ok bool)
}

type DiabetesProbability struct {
	NonDiabetic float64 `json:"Non-Diabetic"`
	Diabetic    float64 `json:"Diabetic"`
}

type DiabetesResult struct {
	Outcome     string              `json:"outcome"`
	Probability DiabetesProbability `json:"probability"`
}

type FoodResult struct {
	CalorieLevel string `json:"calorie_level"`
	HealthStatus string `json:"health_status"`
}

type SleepStressResult struct {
	StressLevel          string   `json:"Stresslevel"`
	SleepDisorder        string   `json:"SleepDisorder"`
	RecommendationStress []string `json:"Recommendation_stress"`
	RecommendationSleep  []string `json:"Recommendation_sleep"`
}

type DietResult struct {
	CaloricIntake         float64          `json:"caloric_intake"`
	CaloricClassification string           `json:"caloric_classification"`
	RecommendedDiets      []nutrition.Diet `json:"recommended_diets"`
}

type Config struct {
	Models         Predictor
	Table          *nutrition.Table
	History        Recorder // optional
	Metrics        HistoryMetrics
	RecommendLimit int
}

// Service holds everything loaded at startup. It is read-only after
// construction and safe for concurrent use.
type Service struct {
	models         Predictor
	table          *nutrition.Table
	history        Recorder
	metrics        HistoryMetrics
	recommendLimit int
}

func NewService(cfg Config) *Service {
	limit := cfg.RecommendLimit
	if limit <= 0 {
		limit = common.DefaultRecommendLimit
	}
	return &Service{
		models:         cfg.Models,
		table:          cfg.Table,
		history:        cfg.History,
		metrics:        cfg.Metrics,
		recommendLimit: limit,
	}
}

// Ready reports whether the models and the nutrition table are loaded.
func (s *Service) Ready() bool {
	if s.models == nil || s.table.Len() == 0 {
		return false
	}
	if r, ok := s.models.(interface{ Ready() bool }); ok {
		return r.Ready()
	}
	return true
}

func (s *Service) predict(ctx context.Context, id ml.ModelID, vec features.FeatureVector) (ml.RawOutput, error) {
	if s.models == nil {
		return ml.RawOutput{}, &ml.DataUnavailableError{Resource: "model registry"}
	}
	return s.models.Predict(ctx, id, vec)
}

func (s *Service) PredictDiabetes(ctx context.Context, req features.Request) (DiabetesResult, error) {
	vec, err := features.ValidateAndEncode(req, features.DiabetesSchema)
	if err != nil {
		return DiabetesResult{}, err
	}

	out, err := s.predict(ctx, ml.ModelDiabetes, vec)
	if err != nil {
		return DiabetesResult{}, err
	}
	if len(out.Probabilities) < 2 {
		return DiabetesResult{}, &ml.InferenceError{Model: ml.ModelDiabetes, Err: fmt.Errorf("expected 2 probabilities, got %d", len(out.Probabilities))}
	}

	res := DiabetesResult{
		Outcome: DecodeDiabetes(out.Class),
		Probability: DiabetesProbability{
			NonDiabetic: out.Probabilities[0],
			Diabetic:    out.Probabilities[1],
		},
	}
	s.record(ctx, storage.EndpointDiabetes, req, res)
	return res, nil
}

// PredictFood runs both food classifiers on the same vector.
func (s *Service) PredictFood(ctx context.Context, req features.Request) (FoodResult, error) {
	vec, err := features.ValidateAndEncode(req, features.FoodSchema)
	if err != nil {
		return FoodResult{}, err
	}

	calorie, err := s.predict(ctx, ml.ModelCalorieLevel, vec)
	if err != nil {
		return FoodResult{}, err
	}
	status, err := s.predict(ctx, ml.ModelFoodHealth, vec)
	if err != nil {
		return FoodResult{}, err
	}

	res := FoodResult{
		CalorieLevel: DecodeCalorieLevel(calorie.Class),
		HealthStatus: DecodeHealthStatus(status.Class),
	}
	s.record(ctx, storage.EndpointFood, req, res)
	return res, nil
}

func (s *Service) PredictSleepStress(ctx context.Context, req features.Request) (SleepStressResult, error) {
	vec, err := features.ValidateAndEncode(req, features.SleepStressSchema)
	if err != nil {
		return SleepStressResult{}, err
	}

	out, err := s.predict(ctx, ml.ModelSleepStress, vec)
	if err != nil {
		return SleepStressResult{}, err
	}
	if len(out.Values) < 2 {
		return SleepStressResult{}, &ml.InferenceError{Model: ml.ModelSleepStress, Err: fmt.Errorf("expected 2 output columns, got %d", len(out.Values))}
	}

	stress := DecodeStress(out.Values[0])
	disorder := DecodeDisorder(out.Values[1])
	res := SleepStressResult{
		StressLevel:          stress,
		SleepDisorder:        disorder,
		RecommendationStress: StressRecommendations(stress),
		RecommendationSleep:  SleepRecommendations(disorder),
	}
	s.record(ctx, storage.EndpointSleepStress, req, res)
	return res, nil
}

// RecommendDiet estimates the caloric goal and picks foods within 100 kcal above it.
func (s *Service) RecommendDiet(ctx context.Context, req features.Request) (DietResult, error) {
	if err := features.Validate(req, features.DietSchema); err != nil {
		return DietResult{}, err
	}

	in, err := nutrition.InputFromRequest(req)
	if err != nil {
		return DietResult{}, err
	}
	if err := in.Validate(); err != nil {
		return DietResult{}, err
	}
	if s.table == nil {
		return DietResult{}, &ml.DataUnavailableError{Resource: "nutrition table"}
	}

	est := nutrition.Calculate(in)
	res := DietResult{
		CaloricIntake:         est.CaloricIntake,
		CaloricClassification: est.Classification,
		RecommendedDiets:      s.table.Recommend(est.Classification, est.CaloricIntake, s.recommendLimit),
	}

	log.Debug().
		Float64("bmi", est.BMI).
		Float64("bmr", est.BMR).
		Float64("caloric_intake", est.CaloricIntake).
		Int("diets", len(res.RecommendedDiets)).
		Msg("Diet recommendation computed")

	s.record(ctx, storage.EndpointDiet, req, res)
	return res, nil
}

// record appends a served prediction to the history store. Failures are
// logged and never fail the request.
func (s *Service) record(ctx context.Context, endpoint string, req features.Request, outcome any) {
	if s.history == nil {
		return
	}

	err := s.store(ctx, endpoint, req, outcome)
	if s.metrics != nil {
		s.metrics.HistoryWriteInc(err == nil)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Str("request_id", common.RequestID(ctx)).
			Msg("Failed to record prediction")
	}
}

func (s *Service) store(ctx context.Context, endpoint string, req features.Request, outcome any) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return s.history.StorePrediction(storage.PredictionRecord{
		Endpoint:  endpoint,
		RequestID: common.RequestID(ctx),
		Input:     req,
		Outcome:   data,
	})
}
