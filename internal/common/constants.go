package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvPort             = "PORT"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
	EnvDiabetesModel    = "DIABETES_MODEL_PATH"
	EnvFoodHealthModel  = "FOOD_HEALTH_MODEL_PATH"
	EnvCalorieModel     = "CALORIE_LEVEL_MODEL_PATH"
	EnvSleepStressModel = "SLEEP_STRESS_MODEL_PATH"
	EnvModelBackend     = "MODEL_BACKEND"
	EnvPythonPath       = "PYTHON_PATH"
	EnvInferenceURL     = "INFERENCE_URL"
	EnvInferenceTimeout = "INFERENCE_TIMEOUT"
	EnvScaling          = "DIABETES_SCALING"
	EnvScalerPath       = "DIABETES_SCALER_PATH"
	EnvNutritionPath    = "NUTRITION_DATA_PATH"
	EnvDataPath         = "DATA_PATH"
	EnvRateLimit        = "RATE_LIMIT"
	EnvRateBurst        = "RATE_BURST"
	EnvCORSOrigins      = "CORS_ORIGINS"
	EnvRecommendLimit   = "RECOMMEND_LIMIT"
)

// Configuration defaults
const (
	DefaultPort             = 8000
	DefaultLogLevel         = "info"
	DefaultDiabetesModel    = "models/diabetes modelss.pkl"
	DefaultFoodHealthModel  = "models/food health.pkl"
	DefaultCalorieModel     = "models/calorie level.pkl"
	DefaultSleepStressModel = "models/multi_output_svm_model_pipeline.onnx"
	DefaultModelBackend     = "python"
	DefaultScaling          = "refit"
	DefaultNutritionPath    = "models/recommend_data.csv"
	DefaultRateLimit        = 50.0 // requests per second
	DefaultRateBurst        = 100
	DefaultRecommendLimit   = 5
	DefaultCORSOrigin       = "*"
)

// Endpoint paths, also used as metric labels
const (
	RouteRoot            = "/"
	RouteHealth          = "/health"
	RouteReady           = "/ready"
	RouteMetrics         = "/metrics"
	RouteHistory         = "/history"
	RoutePredictDiabetes = "/predict_diabetes"
	RoutePredictFood     = "/predict_calorie_health"
	RoutePredictSleep    = "/predict_sleep_stress"
	RouteRecommendDiet   = "/recommend_diet"
)

// HTTP server timeouts in seconds
const (
	ServerReadTimeout     = 10
	ServerWriteTimeout    = 30
	ServerIdleTimeout     = 60
	ServerShutdownTimeout = 10
)
