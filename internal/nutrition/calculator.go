// Package nutrition estimates the daily caloric goal of a pregnant user and
// selects foods from the nutrition table that fit it.
package nutrition

import (
	"strings"

	"healthmania-api/internal/features"
)

// Caloric-level buckets, as stored in the "caloric level" column of the table.
const (
	LevelLow  = "low"
	LevelMid  = "mid"
	LevelHigh = "high"
)

const defaultActivityFactor = 1.2

var activityFactors = map[string]float64{
	"sedentary":         1.2,
	"light active":      1.375,
	"moderately active": 1.55,
	"very active":       1.75,
}

// Gestational weight goals in units of 100 kcal, indexed by bmi bucket then trimester.
// Unrecognised stages fall into the last column.
var weightGoals = [3][3]float64{
	{2, 10, 18}, // underweight
	{2, 10, 16}, // normal
	{2, 7, 11},  // overweight
}

// Height bounds in centimetres. Anything below the lower bound is almost
// certainly a height sent in metres.
const (
	MinHeightCm = 50.0
	MaxHeightCm = 250.0
)

type Input struct {
	Age            float64
	HeightCm       float64
	WeightKg       float64
	PregnancyStage string
	Activity       string
}

type Estimate struct {
	BMI            float64
	Goal           float64
	BMR            float64
	ActivityFactor float64
	CaloricIntake  float64
	Classification string
}

// Validate enforces the units contract: height in centimetres, weight in kilograms.
func (in Input) Validate() error {
	if in.HeightCm < MinHeightCm || in.HeightCm > MaxHeightCm {
		return &features.InvalidValueError{Field: "height", Value: in.HeightCm, Reason: "height must be in centimetres (50-250)"}
	}
	if in.WeightKg <= 0 {
		return &features.InvalidValueError{Field: "weight", Value: in.WeightKg, Reason: "weight must be positive kilograms"}
	}
	if in.Age < 0 {
		return &features.InvalidValueError{Field: "age", Value: in.Age, Reason: "age must not be negative"}
	}
	return nil
}

func ActivityFactor(activity string) float64 {
	if f, ok := activityFactors[strings.ToLower(activity)]; ok {
		return f
	}
	return defaultActivityFactor
}

func BMI(weightKg, heightCm float64) float64 {
	m := heightCm / 100
	return weightKg / (m * m)
}

func Goal(bmi float64, stage string) float64 {
	row := 2
	switch {
	case bmi < 18.5:
		row = 0
	case bmi <= 25:
		row = 1
	}

	col := 2
	switch strings.ToLower(stage) {
	case "firsttrimester":
		col = 0
	case "secondtrimester":
		col = 1
	}
	return weightGoals[row][col]
}

// BMR is Mifflin-St Jeor with the female constant. There is no sex input.
func BMR(age, heightCm, weightKg float64) float64 {
	return 10*weightKg + 6.25*heightCm - 5*age - 161
}

func Classify(caloricIntake float64) string {
	switch {
	case caloricIntake < 300:
		return LevelLow
	case caloricIntake <= 350:
		return LevelMid
	default:
		return LevelHigh
	}
}

// Calculate is pure; call Validate first.
func Calculate(in Input) Estimate {
	bmi := BMI(in.WeightKg, in.HeightCm)
	goal := Goal(bmi, in.PregnancyStage)
	bmr := BMR(in.Age, in.HeightCm, in.WeightKg)
	factor := ActivityFactor(in.Activity)
	intake := bmr*factor + goal*100

	return Estimate{
		BMI:            bmi,
		Goal:           goal,
		BMR:            bmr,
		ActivityFactor: factor,
		CaloricIntake:  intake,
		Classification: Classify(intake),
	}
}
