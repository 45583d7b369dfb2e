package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Report file names written into the output directory.
const (
	SummaryFile = "dietcheck_summary.txt"
	CSVFile     = "dietcheck_results.csv"
	JSONFile    = "dietcheck_results.json"
)

// Reporter writes batch results to disk.
type Reporter struct {
	results    *Results
	outputPath string
}

func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes every report format.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateCSV(); err != nil {
		return err
	}
	return r.generateJSON()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, SummaryFile)
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	res := r.results
	fmt.Fprintf(file, "DIET CHECK SUMMARY\n")
	fmt.Fprintf(file, "==================\n\n")
	fmt.Fprintf(file, "Run: %s (%s)\n", res.StartTime.Format("2006-01-02 15:04:05"), res.EndTime.Sub(res.StartTime))
	fmt.Fprintf(file, "Nutrition table rows: %d\n", res.TableRows)
	fmt.Fprintf(file, "Diets per patient: %d\n\n", res.DietLimit)

	fmt.Fprintf(file, "PATIENTS\n")
	fmt.Fprintf(file, "--------\n")
	fmt.Fprintf(file, "Processed: %d\n", res.Processed)
	fmt.Fprintf(file, "Invalid: %d\n", res.Invalid)
	fmt.Fprintf(file, "Skipped rows: %d\n", len(res.Skipped))
	fmt.Fprintf(file, "Without any diet: %d\n\n", res.NoDiets)

	if res.Processed > 0 {
		fmt.Fprintf(file, "CALORIC INTAKE\n")
		fmt.Fprintf(file, "--------------\n")
		fmt.Fprintf(file, "Mean: %.2f kcal\n", res.MeanIntake)
		fmt.Fprintf(file, "Min: %.2f kcal\n", res.MinIntake)
		fmt.Fprintf(file, "Max: %.2f kcal\n\n", res.MaxIntake)

		levels := make([]string, 0, len(res.ByLevel))
		for level := range res.ByLevel {
			levels = append(levels, level)
		}
		sort.Strings(levels)

		fmt.Fprintf(file, "BY CLASSIFICATION\n")
		fmt.Fprintf(file, "-----------------\n")
		for _, level := range levels {
			n := res.ByLevel[level]
			fmt.Fprintf(file, "%s: %d (%.1f%%)\n", level, n, float64(n)/float64(res.Processed)*100)
		}
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateCSV() error {
	csvPath := filepath.Join(r.outputPath, CSVFile)
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create results CSV: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"patient_id", "age", "height", "weight", "preg_stage", "active",
		"bmi", "bmr", "caloric_intake", "caloric_classification", "diets", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		names := make([]string, len(o.Diets))
		for i, d := range o.Diets {
			names[i] = d.Description
		}
		record := []string{
			o.PatientID,
			fmt.Sprintf("%g", o.Input.Age),
			fmt.Sprintf("%g", o.Input.HeightCm),
			fmt.Sprintf("%g", o.Input.WeightKg),
			o.Input.PregnancyStage,
			o.Input.Activity,
			"", "", "", "",
			strings.Join(names, "; "),
			o.Error,
		}
		if o.Error == "" {
			record[6] = fmt.Sprintf("%.2f", o.Estimate.BMI)
			record[7] = fmt.Sprintf("%.2f", o.Estimate.BMR)
			record[8] = fmt.Sprintf("%.2f", o.Estimate.CaloricIntake)
			record[9] = o.Estimate.Classification
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write results CSV: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Results CSV generated")
	return nil
}

func (r *Reporter) generateJSON() error {
	jsonPath := filepath.Join(r.outputPath, JSONFile)

	report := map[string]interface{}{
		"results":      r.results,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}
