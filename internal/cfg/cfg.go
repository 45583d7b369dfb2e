package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"healthmania-api/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Port             int
	LogLevel         string
	Models           ModelPaths
	ModelBackend     string
	PythonPath       string
	InferenceURL     string
	InferenceTimeout time.Duration
	Scaling          string
	ScalerPath       string
	NutritionPath    string
	DataPath         string
	RateLimit        float64
	RateBurst        int
	CORSOrigins      []string
	RecommendLimit   int
}

type ModelPaths struct {
	Diabetes     string `yaml:"diabetes"`
	FoodHealth   string `yaml:"foodHealth"`
	CalorieLevel string `yaml:"calorieLevel"`
	SleepStress  string `yaml:"sleepStress"`
}

type ConfigFile struct {
	Server struct {
		Port        int      `yaml:"port"`
		LogLevel    string   `yaml:"logLevel"`
		RateLimit   float64  `yaml:"rateLimit"`
		RateBurst   int      `yaml:"rateBurst"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"server"`

	Models ModelPaths `yaml:"models"`

	Inference struct {
		Backend    string `yaml:"backend"`
		PythonPath string `yaml:"pythonPath"`
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		Scaling    string `yaml:"scaling"`
		ScalerPath string `yaml:"scalerPath"`
	} `yaml:"inference"`

	Nutrition struct {
		DataPath       string `yaml:"dataPath"`
		RecommendLimit int    `yaml:"recommendLimit"`
	} `yaml:"nutrition"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	timeout := 5 * time.Second
	if config.Inference.Timeout != "" {
		timeout, err = time.ParseDuration(config.Inference.Timeout)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid inference timeout %q: %w", config.Inference.Timeout, err)
		}
	}

	settings := Settings{
		Port:     getIntFromEnvOrConfig(common.EnvPort, config.Server.Port, common.DefaultPort),
		LogLevel: getEnvOrDefault(common.EnvLogLevel, orDefault(config.Server.LogLevel, common.DefaultLogLevel)),
		Models: ModelPaths{
			Diabetes:     getEnvOrDefault(common.EnvDiabetesModel, orDefault(config.Models.Diabetes, common.DefaultDiabetesModel)),
			FoodHealth:   getEnvOrDefault(common.EnvFoodHealthModel, orDefault(config.Models.FoodHealth, common.DefaultFoodHealthModel)),
			CalorieLevel: getEnvOrDefault(common.EnvCalorieModel, orDefault(config.Models.CalorieLevel, common.DefaultCalorieModel)),
			SleepStress:  getEnvOrDefault(common.EnvSleepStressModel, orDefault(config.Models.SleepStress, common.DefaultSleepStressModel)),
		},
		ModelBackend:     getEnvOrDefault(common.EnvModelBackend, orDefault(config.Inference.Backend, common.DefaultModelBackend)),
		PythonPath:       getEnvOrDefault(common.EnvPythonPath, config.Inference.PythonPath),
		InferenceURL:     getEnvOrDefault(common.EnvInferenceURL, config.Inference.URL),
		InferenceTimeout: getDurationOrDefault(common.EnvInferenceTimeout, timeout),
		Scaling:          getEnvOrDefault(common.EnvScaling, orDefault(config.Inference.Scaling, common.DefaultScaling)),
		ScalerPath:       getEnvOrDefault(common.EnvScalerPath, config.Inference.ScalerPath),
		NutritionPath:    getEnvOrDefault(common.EnvNutritionPath, orDefault(config.Nutrition.DataPath, common.DefaultNutritionPath)),
		DataPath:         getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		RateLimit:        getFloatFromEnvOrConfig(common.EnvRateLimit, config.Server.RateLimit, common.DefaultRateLimit),
		RateBurst:        getIntFromEnvOrConfig(common.EnvRateBurst, config.Server.RateBurst, common.DefaultRateBurst),
		CORSOrigins:      getListFromEnvOrConfig(common.EnvCORSOrigins, config.Server.CORSOrigins),
		RecommendLimit:   getIntFromEnvOrConfig(common.EnvRecommendLimit, config.Nutrition.RecommendLimit, common.DefaultRecommendLimit),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:     getIntOrDefault(common.EnvPort, common.DefaultPort),
		LogLevel: getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		Models: ModelPaths{
			Diabetes:     getEnvOrDefault(common.EnvDiabetesModel, common.DefaultDiabetesModel),
			FoodHealth:   getEnvOrDefault(common.EnvFoodHealthModel, common.DefaultFoodHealthModel),
			CalorieLevel: getEnvOrDefault(common.EnvCalorieModel, common.DefaultCalorieModel),
			SleepStress:  getEnvOrDefault(common.EnvSleepStressModel, common.DefaultSleepStressModel),
		},
		ModelBackend:     getEnvOrDefault(common.EnvModelBackend, common.DefaultModelBackend),
		PythonPath:       os.Getenv(common.EnvPythonPath),   // optional, auto-detected
		InferenceURL:     os.Getenv(common.EnvInferenceURL), // required for the http backend
		InferenceTimeout: getDurationOrDefault(common.EnvInferenceTimeout, 5*time.Second),
		Scaling:          getEnvOrDefault(common.EnvScaling, common.DefaultScaling),
		ScalerPath:       os.Getenv(common.EnvScalerPath),
		NutritionPath:    getEnvOrDefault(common.EnvNutritionPath, common.DefaultNutritionPath),
		DataPath:         os.Getenv(common.EnvDataPath), // optional, disables history when empty
		RateLimit:        getFloatOrDefault(common.EnvRateLimit, common.DefaultRateLimit),
		RateBurst:        getIntOrDefault(common.EnvRateBurst, common.DefaultRateBurst),
		CORSOrigins:      splitOrDefault(os.Getenv(common.EnvCORSOrigins), []string{common.DefaultCORSOrigin}),
		RecommendLimit:   getIntOrDefault(common.EnvRecommendLimit, common.DefaultRecommendLimit),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getListFromEnvOrConfig(key string, configValue []string) []string {
	if env := os.Getenv(key); env != "" {
		return splitOrDefault(env, []string{common.DefaultCORSOrigin})
	}
	if len(configValue) > 0 {
		return configValue
	}
	return []string{common.DefaultCORSOrigin}
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs range checks on configuration values
func validateSettings(settings *Settings) error {
	if settings.Port < 1 || settings.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", settings.Port)
	}

	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got %q", settings.LogLevel)
	}

	// Validate inference backend
	switch settings.ModelBackend {
	case "python":
		m := settings.Models
		if m.Diabetes == "" || m.FoodHealth == "" || m.CalorieLevel == "" || m.SleepStress == "" {
			return fmt.Errorf("all four model paths are required for the python backend")
		}
	case "http":
		if settings.InferenceURL == "" {
			return fmt.Errorf("inference URL is required for the http backend")
		}
		if !strings.HasPrefix(settings.InferenceURL, "http://") && !strings.HasPrefix(settings.InferenceURL, "https://") {
			return fmt.Errorf("inference URL must start with http:// or https://, got %q", settings.InferenceURL)
		}
	default:
		return fmt.Errorf("model backend must be python or http, got %q", settings.ModelBackend)
	}

	if settings.InferenceTimeout < 100*time.Millisecond || settings.InferenceTimeout > time.Minute {
		return fmt.Errorf("inference timeout must be between 100ms and 1m, got %v", settings.InferenceTimeout)
	}

	// Validate diabetes scaling
	switch settings.Scaling {
	case "refit":
	case "persisted":
		if settings.ScalerPath == "" {
			return fmt.Errorf("scaler path is required for persisted scaling")
		}
	default:
		return fmt.Errorf("scaling must be refit or persisted, got %q", settings.Scaling)
	}

	if settings.NutritionPath == "" {
		return fmt.Errorf("nutrition data path cannot be empty")
	}

	if settings.RateLimit <= 0 || settings.RateLimit > 10000 {
		return fmt.Errorf("rate limit must be between 0 and 10000 requests/s, got %f", settings.RateLimit)
	}
	if settings.RateBurst < 1 || settings.RateBurst > 100000 {
		return fmt.Errorf("rate burst must be between 1 and 100000, got %d", settings.RateBurst)
	}
	if settings.RecommendLimit < 1 || settings.RecommendLimit > 1000 {
		return fmt.Errorf("recommendation limit must be between 1 and 1000, got %d", settings.RecommendLimit)
	}
	if len(settings.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be specified")
	}

	return nil
}
