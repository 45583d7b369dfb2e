package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"healthmania-api/internal/api"
	"healthmania-api/internal/cfg"
	"healthmania-api/internal/common"
	"healthmania-api/internal/health"
	"healthmania-api/internal/metrics"
	"healthmania-api/internal/ml"
	"healthmania-api/internal/nutrition"
	"healthmania-api/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	configureLogging(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	registry, table := loadDependencies(ctx, c, mw)
	defer registry.Close()
	mw.DietTableRowsSet(table.Len())

	svcCfg := health.Config{
		Models:         registry,
		Table:          table,
		Metrics:        mw,
		RecommendLimit: c.RecommendLimit,
	}
	var history api.HistoryReader
	if store := initializeStorage(c); store != nil {
		defer store.Close()
		svcCfg.History = store
		history = store
	}

	server := api.NewServer(api.Config{
		Port:        c.Port,
		RateLimit:   c.RateLimit,
		RateBurst:   c.RateBurst,
		CORSOrigins: c.CORSOrigins,
	}, health.NewService(svcCfg), history, mw, prometheus.DefaultGatherer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, server)
}

// configureLogging sets the global level, and switches to console output when LOG_FORMAT=console
func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if os.Getenv(common.EnvLogFormat) == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// loadDependencies loads the models and the nutrition table concurrently. Both are required.
func loadDependencies(ctx context.Context, c cfg.Settings, mw *metrics.MetricsWrapper) (*ml.Registry, *nutrition.Table) {
	var (
		registry *ml.Registry
		table    *nutrition.Table
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := ml.Load(gctx, ml.LoadConfig{
			Backend: c.ModelBackend,
			Paths: map[ml.ModelID]string{
				ml.ModelDiabetes:     c.Models.Diabetes,
				ml.ModelFoodHealth:   c.Models.FoodHealth,
				ml.ModelCalorieLevel: c.Models.CalorieLevel,
				ml.ModelSleepStress:  c.Models.SleepStress,
			},
			PythonPath:   c.PythonPath,
			InferenceURL: c.InferenceURL,
			Timeout:      c.InferenceTimeout,
			Scaling:      c.Scaling,
			ScalerPath:   c.ScalerPath,
		}, mw)
		registry = r
		return err
	})
	g.Go(func() error {
		t, err := nutrition.LoadTable(c.NutritionPath)
		table = t
		return err
	})

	start := time.Now()
	if err := g.Wait(); err != nil {
		if registry != nil {
			registry.Close()
		}
		log.Fatal().Err(err).Msg("startup load failed")
	}

	log.Info().
		Str("backend", c.ModelBackend).
		Str("scaling", registry.Scaling()).
		Int("foods", table.Len()).
		Dur("duration", time.Since(start)).
		Msg("Models and nutrition table loaded")
	return registry, table
}

// initializeStorage initializes prediction history if DATA_PATH is configured
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath != "" {
		store, err := storage.New(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Msg("storage initialization failed, continuing without history")
			return nil
		}
		return store
	}
	return nil
}

func waitForShutdown(ctx context.Context, server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), common.ServerShutdownTimeout*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("server stopped")
}
