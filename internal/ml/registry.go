package ml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"healthmania-api/internal/features"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ModelID names one of the served models.
type ModelID string

const (
	ModelDiabetes     ModelID = "diabetes"
	ModelFoodHealth   ModelID = "food_health"
	ModelCalorieLevel ModelID = "calorie_level"
	ModelSleepStress  ModelID = "sleep_stress"
)

var AllModels = []ModelID{ModelDiabetes, ModelFoodHealth, ModelCalorieLevel, ModelSleepStress}

// Schema is the feature layout the model was trained on.
func (id ModelID) Schema() features.Schema {
	switch id {
	case ModelDiabetes:
		return features.DiabetesSchema
	case ModelFoodHealth, ModelCalorieLevel:
		return features.FoodSchema
	case ModelSleepStress:
		return features.SleepStressSchema
	default:
		return features.Schema{}
	}
}

// RawOutput is an undecoded model answer. Probabilities is only set for the
// diabetes model and Values only for the sleep/stress session.
type RawOutput struct {
	Class         int
	Probabilities []float64
	Values        []float64
}

// Handles are the four loaded models. Any of them may be nil if it was never loaded.
type Handles struct {
	Diabetes     Classifier
	FoodHealth   Classifier
	CalorieLevel Classifier
	SleepStress  Session
}

// Registry dispatches feature vectors to model handles. Handles are read-only
// after construction, so a Registry is safe for concurrent use.
type Registry struct {
	handles Handles
	scaling ScalingStrategy
	metrics MetricsInterface
	backend Backend
}

func NewRegistry(h Handles, scaling ScalingStrategy, metrics MetricsInterface) *Registry {
	if scaling == nil {
		scaling = RefitPerRequest{}
	}
	return &Registry{handles: h, scaling: scaling, metrics: metrics}
}

// Backend names accepted in configuration.
const (
	BackendPython = "python"
	BackendHTTP   = "http"
)

// LoadConfig describes where artifacts live and how they are executed.
type LoadConfig struct {
	Backend      string
	Paths        map[ModelID]string
	PythonPath   string
	ScriptPath   string
	InferenceURL string
	Timeout      time.Duration
	Scaling      string
	ScalerPath   string
}

// Load checks every artifact concurrently, then starts the backend that will own them.
func Load(ctx context.Context, cfg LoadConfig, metrics MetricsInterface) (*Registry, error) {
	var (
		mu      sync.Mutex
		scaling ScalingStrategy
	)

	g, _ := errgroup.WithContext(ctx)
	for _, id := range AllModels {
		id := id
		path := cfg.Paths[id]
		g.Go(func() error {
			if path == "" {
				if cfg.Backend == BackendHTTP {
					return nil
				}
				return fmt.Errorf("no artifact path configured for model %s", id)
			}
			return checkArtifact(id, path, cfg.Backend, metrics)
		})
	}
	g.Go(func() error {
		s, err := NewScalingStrategy(cfg.Scaling, cfg.ScalerPath, features.DiabetesSchema.Len())
		if err != nil {
			return err
		}
		mu.Lock()
		scaling = s
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var backend Backend
	switch cfg.Backend {
	case "", BackendPython:
		models := make(map[string]string, len(AllModels))
		for _, id := range AllModels {
			models[string(id)] = cfg.Paths[id]
		}
		w, err := NewPythonWorker(WorkerConfig{
			PythonPath: cfg.PythonPath,
			ScriptPath: cfg.ScriptPath,
			Models:     models,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		backend = w
	case BackendHTTP:
		if cfg.InferenceURL == "" {
			return nil, fmt.Errorf("backend %q requires an inference URL", cfg.Backend)
		}
		backend = NewRemoteBackend(cfg.InferenceURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}

	r := NewRegistry(Handles{
		Diabetes:     NewClassifier(backend, string(ModelDiabetes)),
		FoodHealth:   NewClassifier(backend, string(ModelFoodHealth)),
		CalorieLevel: NewClassifier(backend, string(ModelCalorieLevel)),
		SleepStress:  NewSession(backend, string(ModelSleepStress)),
	}, scaling, metrics)
	r.backend = backend

	log.Info().
		Str("backend", cfg.Backend).
		Str("scaling", scaling.Name()).
		Msg("Model registry loaded")
	return r, nil
}

func checkArtifact(id ModelID, path, backend string, metrics MetricsInterface) error {
	info, err := os.Stat(path)
	if err != nil {
		if backend == BackendHTTP && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("model %s: %w", id, err)
	}
	if metrics != nil {
		metrics.MLModelAgeSet(string(id), time.Since(info.ModTime()).Seconds())
	}

	md, err := loadModelMetadata(path)
	if err != nil {
		log.Warn().Err(err).Str("model", string(id)).Msg("Failed to load model metadata")
		return nil
	}
	if err := checkFeatureOrder(md, id.Schema().Names()); err != nil {
		return fmt.Errorf("model %s: %w", id, err)
	}
	if md != nil {
		log.Info().
			Str("model", string(id)).
			Str("version", md.Version).
			Time("trained_at", md.TrainedAt).
			Msg("Model metadata verified")
	}
	return nil
}

// Scaling reports the active diabetes scaling strategy.
func (r *Registry) Scaling() string {
	return r.scaling.Name()
}

// Ready reports whether every handle is present.
func (r *Registry) Ready() bool {
	if r == nil {
		return false
	}
	h := r.handles
	return h.Diabetes != nil && h.FoodHealth != nil && h.CalorieLevel != nil && h.SleepStress != nil
}

func (r *Registry) Close() error {
	if r == nil || r.backend == nil {
		return nil
	}
	return r.backend.Close()
}

// Predict runs vec through model id. vec must already match id.Schema().
func (r *Registry) Predict(ctx context.Context, id ModelID, vec features.FeatureVector) (RawOutput, error) {
	if r == nil {
		return RawOutput{}, &DataUnavailableError{Resource: "model registry"}
	}

	start := time.Now()
	out, err := r.predict(ctx, id, vec.Clone())
	if r.metrics != nil {
		r.metrics.MLLatencyObserve(string(id), time.Since(start).Seconds())
	}

	if err != nil {
		var unavailable *DataUnavailableError
		if errors.As(err, &unavailable) {
			return RawOutput{}, err
		}
		if r.metrics != nil {
			r.metrics.MLFailuresInc(string(id))
			if errors.Is(err, context.DeadlineExceeded) {
				r.metrics.MLTimeoutsInc(string(id))
			}
		}
		log.Error().Err(err).Str("model", string(id)).Msg("Model inference failed")
		return RawOutput{}, &InferenceError{Model: id, Err: err}
	}

	if r.metrics != nil {
		r.metrics.MLPredictionsInc(string(id))
	}
	return out, nil
}

func (r *Registry) predict(ctx context.Context, id ModelID, vec features.FeatureVector) (RawOutput, error) {
	if want := id.Schema().Len(); want == 0 {
		return RawOutput{}, fmt.Errorf("unknown model %q", id)
	} else if len(vec) != want {
		return RawOutput{}, fmt.Errorf("expected %d features, got %d", want, len(vec))
	}

	switch id {
	case ModelDiabetes:
		return r.predictDiabetes(ctx, vec)
	case ModelFoodHealth:
		return classify(ctx, id, r.handles.FoodHealth, vec)
	case ModelCalorieLevel:
		return classify(ctx, id, r.handles.CalorieLevel, vec)
	default:
		return r.runSleepStress(ctx, vec)
	}
}

func (r *Registry) predictDiabetes(ctx context.Context, vec features.FeatureVector) (RawOutput, error) {
	if r.handles.Diabetes == nil {
		return RawOutput{}, &DataUnavailableError{Resource: "model " + string(ModelDiabetes)}
	}

	scaled, err := r.scaling.Transform(vec)
	if err != nil {
		return RawOutput{}, fmt.Errorf("scaling failed: %w", err)
	}
	rows := [][]float64{scaled}

	classes, err := r.handles.Diabetes.Predict(ctx, rows)
	if err != nil {
		return RawOutput{}, err
	}
	probs, err := r.handles.Diabetes.PredictProba(ctx, rows)
	if err != nil {
		return RawOutput{}, err
	}
	if len(classes) == 0 || len(probs) == 0 {
		return RawOutput{}, fmt.Errorf("empty prediction result")
	}
	if len(probs[0]) != 2 {
		return RawOutput{}, fmt.Errorf("expected 2 probabilities, got %d", len(probs[0]))
	}
	return RawOutput{Class: classes[0], Probabilities: probs[0]}, nil
}

func classify(ctx context.Context, id ModelID, c Classifier, vec features.FeatureVector) (RawOutput, error) {
	if c == nil {
		return RawOutput{}, &DataUnavailableError{Resource: "model " + string(id)}
	}
	classes, err := c.Predict(ctx, [][]float64{vec})
	if err != nil {
		return RawOutput{}, err
	}
	if len(classes) == 0 {
		return RawOutput{}, fmt.Errorf("empty prediction result")
	}
	return RawOutput{Class: classes[0]}, nil
}

func (r *Registry) runSleepStress(ctx context.Context, vec features.FeatureVector) (RawOutput, error) {
	if r.handles.SleepStress == nil {
		return RawOutput{}, &DataUnavailableError{Resource: "model " + string(ModelSleepStress)}
	}
	out, err := r.handles.SleepStress.Run(ctx, [][]float32{vec.Float32()})
	if err != nil {
		return RawOutput{}, err
	}
	if len(out) == 0 || len(out[0]) < 2 {
		return RawOutput{}, fmt.Errorf("expected 2 output columns for %s", ModelSleepStress)
	}
	return RawOutput{Values: out[0]}, nil
}
