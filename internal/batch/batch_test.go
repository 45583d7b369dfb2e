package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"healthmania-api/internal/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patientsCSV = `id,age,height,weight,preg_stage,active
p1,30,160,55,secondTrimester,sedentary
p2,abc,160,55,firstTrimester,sedentary
p3,28,1.6,55,firstTrimester,sedentary
`

func testTable() *nutrition.Table {
	return nutrition.NewTable([]nutrition.Food{
		{Level: nutrition.LevelHigh, Kcal: 2500, Description: "PASTA"},
		{Level: nutrition.LevelHigh, Kcal: 2550, Description: "RICE"},
		{Level: nutrition.LevelHigh, Kcal: 3000, Description: "CAKE"},
	})
}

func TestLoader_LoadCSV(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadCSV(strings.NewReader(patientsCSV)))

	patients := l.Patients()
	require.Len(t, patients, 2)
	assert.Equal(t, "p1", patients[0].ID)
	assert.Equal(t, 160.0, patients[0].Input.HeightCm)
	assert.Equal(t, "secondTrimester", patients[0].Input.PregnancyStage)
	assert.Equal(t, "p3", patients[1].ID)

	skipped := l.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, 3, skipped[0].Line)
	assert.Contains(t, skipped[0].Reason, "age")
}

func TestLoader_LoadCSVMissingColumn(t *testing.T) {
	l := NewLoader()
	err := l.LoadCSV(strings.NewReader("age,height,weight\n30,160,55\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preg_stage")
}

func TestLoader_LoadCSVNumbersRowsWithoutID(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadCSV(strings.NewReader("age,height,weight,preg_stage,active\n30,160,55,x,y\n")))
	require.Len(t, l.Patients(), 1)
	assert.Equal(t, "2", l.Patients()[0].ID)
}

func TestLoader_LoadJSON(t *testing.T) {
	input := `{"id":"a","age":30,"height":160,"weight":55,"preg_stage":"secondTrimester","active":"sedentary"}
{"age":25,"height":170,"weight":60,"preg_stage":"firstTrimester","active":"very active"}`

	l := NewLoader()
	require.NoError(t, l.LoadJSON(strings.NewReader(input)))
	patients := l.Patients()
	require.Len(t, patients, 2)
	assert.Equal(t, "a", patients[0].ID)
	assert.Equal(t, "2", patients[1].ID)
	assert.Equal(t, "very active", patients[1].Input.Activity)
}

func TestLoader_LoadJSONListsMissingFields(t *testing.T) {
	input := `{"id":"p1","height":160,"weight":55,"active":"sedentary"}
{"id":"p2","age":null,"height":160,"weight":55,"preg_stage":"firstTrimester","active":"sedentary"}`

	l := NewLoader()
	require.NoError(t, l.LoadJSON(strings.NewReader(input)))

	assert.Empty(t, l.Patients())
	skipped := l.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Line)
	assert.Equal(t, "missing required fields: age, preg_stage", skipped[0].Reason)
	assert.Equal(t, "missing required fields: age", skipped[1].Reason)
}

func TestLoader_LoadCSVEmptyCellIsMissing(t *testing.T) {
	input := "id,age,height,weight,preg_stage,active\np1,30,160,55,,\n"

	l := NewLoader()
	require.NoError(t, l.LoadCSV(strings.NewReader(input)))

	assert.Empty(t, l.Patients())
	require.Len(t, l.Skipped(), 1)
	assert.Equal(t, "missing required fields: preg_stage, active", l.Skipped()[0].Reason)
}

func TestLoader_LoadJSONWrongType(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadJSON(strings.NewReader(`{"age":"thirty","height":160,"weight":55,"preg_stage":"x","active":"y"}`)))

	assert.Empty(t, l.Patients())
	require.Len(t, l.Skipped(), 1)
	assert.Contains(t, l.Skipped()[0].Reason, "age")
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patients.csv")
	require.NoError(t, os.WriteFile(path, []byte(patientsCSV), 0644))

	l := NewLoader()
	require.NoError(t, l.LoadFile(path))
	assert.Len(t, l.Patients(), 2)

	assert.Error(t, NewLoader().LoadFile(filepath.Join(dir, "missing.csv")))
}

func TestRunner_Run(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadCSV(strings.NewReader(patientsCSV)))

	res, err := NewRunner(testTable(), 5, 2).Run(context.Background(), l.Patients())
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 2)
	first := res.Outcomes[0]
	assert.Empty(t, first.Error)
	assert.InDelta(t, 2486.8, first.Estimate.CaloricIntake, 1e-9)
	require.Len(t, first.Diets, 2)
	assert.Equal(t, "RICE", first.Diets[0].Description)
	assert.Equal(t, "PASTA", first.Diets[1].Description)

	// height in metres fails validation
	assert.Contains(t, res.Outcomes[1].Error, "height")

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, 0, res.NoDiets)
	assert.Equal(t, map[string]int{nutrition.LevelHigh: 1}, res.ByLevel)
	assert.Equal(t, res.MinIntake, res.MaxIntake)
	assert.Equal(t, 3, res.TableRows)
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	patients := []Patient{{ID: "x", Input: nutrition.Input{Age: 30, HeightCm: 160, WeightKg: 55}}}
	_, err := NewRunner(testTable(), 0, 1).Run(ctx, patients)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReporter_GenerateReport(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadCSV(strings.NewReader(patientsCSV)))
	res, err := NewRunner(testTable(), 5, 1).Run(context.Background(), l.Patients())
	require.NoError(t, err)
	res.Skipped = l.Skipped()

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, NewReporter(res, dir).GenerateReport())

	summary, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Processed: 1")
	assert.Contains(t, string(summary), "Skipped rows: 1")
	assert.Contains(t, string(summary), "high: 1 (100.0%)")

	f, err := os.Open(filepath.Join(dir, CSVFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "RICE; PASTA", rows[1][10])
	assert.Equal(t, "high", rows[1][9])
	assert.Empty(t, rows[2][8])
	assert.NotEmpty(t, rows[2][11])

	data, err := os.ReadFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	var report struct {
		Results Results `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Results.Processed)
	assert.Len(t, report.Results.Outcomes, 2)
}
