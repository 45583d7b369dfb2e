package batch

import (
	"context"
	"runtime"
	"time"

	"healthmania-api/internal/nutrition"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result for a single patient. Error is set when the input
// failed validation, in which case Estimate and Diets are empty.
type Outcome struct {
	PatientID string             `json:"patient_id"`
	Input     nutrition.Input    `json:"input"`
	Estimate  nutrition.Estimate `json:"estimate"`
	Diets     []nutrition.Diet   `json:"recommended_diets"`
	Error     string             `json:"error,omitempty"`
}

// Results aggregates a batch run.
type Results struct {
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Outcomes   []Outcome      `json:"outcomes"`
	Skipped    []SkippedRow   `json:"skipped,omitempty"`
	Processed  int            `json:"processed"`
	Invalid    int            `json:"invalid"`
	NoDiets    int            `json:"no_diets"`
	ByLevel    map[string]int `json:"by_level"`
	MeanIntake float64        `json:"mean_caloric_intake"`
	MinIntake  float64        `json:"min_caloric_intake"`
	MaxIntake  float64        `json:"max_caloric_intake"`
	DietLimit  int            `json:"diet_limit"`
	TableRows  int            `json:"table_rows"`
}

// Runner evaluates patients against a nutrition table.
type Runner struct {
	table   *nutrition.Table
	limit   int
	workers int
}

func NewRunner(table *nutrition.Table, limit, workers int) *Runner {
	if limit <= 0 {
		limit = nutrition.DefaultLimit
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{table: table, limit: limit, workers: workers}
}

// Run evaluates every patient. Outcomes keep the input order.
func (r *Runner) Run(ctx context.Context, patients []Patient) (*Results, error) {
	res := &Results{
		StartTime: time.Now(),
		Outcomes:  make([]Outcome, len(patients)),
		ByLevel:   make(map[string]int),
		DietLimit: r.limit,
		TableRows: r.table.Len(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range patients {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Outcomes[i] = r.evaluate(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.summarize(res)
	res.EndTime = time.Now()

	log.Info().
		Int("processed", res.Processed).
		Int("invalid", res.Invalid).
		Dur("duration", res.EndTime.Sub(res.StartTime)).
		Msg("Batch run completed")
	return res, nil
}

func (r *Runner) evaluate(p Patient) Outcome {
	out := Outcome{PatientID: p.ID, Input: p.Input}
	if err := p.Input.Validate(); err != nil {
		out.Error = err.Error()
		return out
	}
	out.Estimate = nutrition.Calculate(p.Input)
	out.Diets = r.table.Recommend(out.Estimate.Classification, out.Estimate.CaloricIntake, r.limit)
	return out
}

func (r *Runner) summarize(res *Results) {
	sum := 0.0
	for _, o := range res.Outcomes {
		if o.Error != "" {
			res.Invalid++
			continue
		}
		intake := o.Estimate.CaloricIntake
		if res.Processed == 0 || intake < res.MinIntake {
			res.MinIntake = intake
		}
		if res.Processed == 0 || intake > res.MaxIntake {
			res.MaxIntake = intake
		}
		res.Processed++
		sum += intake
		res.ByLevel[o.Estimate.Classification]++
		if len(o.Diets) == 0 {
			res.NoDiets++
		}
	}
	if res.Processed > 0 {
		res.MeanIntake = sum / float64(res.Processed)
	}
}
