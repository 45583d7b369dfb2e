package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"healthmania-api/internal/batch"
	"healthmania-api/internal/common"
	"healthmania-api/internal/nutrition"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "Patient file (CSV or JSON lines)")
		tablePath  = flag.String("table", common.DefaultNutritionPath, "Path to the nutrition table CSV")
		outputPath = flag.String("output", "dietcheck_results", "Output directory for reports")
		limit      = flag.Int("limit", common.DefaultRecommendLimit, "Diets recommended per patient")
		workers    = flag.Int("workers", 0, "Parallel workers (0 = number of CPUs)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: dietcheck -input patients.csv [-table recommend_data.csv] [-output dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	fmt.Println("=== Diet Check Configuration ===")
	fmt.Printf("Input: %s\n", *inputPath)
	fmt.Printf("Nutrition Table: %s\n", *tablePath)
	fmt.Printf("Output Directory: %s\n", *outputPath)
	fmt.Printf("Diets Per Patient: %d\n", *limit)
	fmt.Println("================================")

	table, err := nutrition.LoadTable(*tablePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load nutrition table")
	}

	loader := batch.NewLoader()
	if err := loader.LoadFile(*inputPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to load patients")
	}

	results, err := batch.NewRunner(table, *limit, *workers).Run(context.Background(), loader.Patients())
	if err != nil {
		log.Fatal().Err(err).Msg("Batch run failed")
	}
	results.Skipped = loader.Skipped()

	if err := batch.NewReporter(results, *outputPath).GenerateReport(); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate reports")
	}

	fmt.Println("\n=== Diet Check Results ===")
	fmt.Printf("Processed: %d\n", results.Processed)
	fmt.Printf("Invalid: %d\n", results.Invalid)
	fmt.Printf("Skipped Rows: %d\n", len(results.Skipped))
	fmt.Printf("Without Diets: %d\n", results.NoDiets)
	if results.Processed > 0 {
		fmt.Printf("Mean Caloric Intake: %.2f kcal\n", results.MeanIntake)
	}
	fmt.Printf("Reports written to %s\n", *outputPath)
}
