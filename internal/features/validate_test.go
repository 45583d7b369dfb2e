package features

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sleepRequest() Request {
	return Request{
		"gender":           "Male",
		"age":              json.Number("29"),
		"occupation":       "Software Engineer",
		"sleepDuration":    6.5,
		"qualityOfSleep":   6.0,
		"physicalActivity": 40.0,
		"bmiCategory":      "Normal Weight",
		"heartRate":        72.0,
		"dailySteps":       json.Number("7000"),
		"systolicBP":       125.0,
		"diastolicBP":      80.0,
	}
}

func TestValidate_ListsEveryMissingField(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		schema  Schema
		missing []string
	}{
		{
			name:    "empty diabetes request",
			req:     Request{},
			schema:  DiabetesSchema,
			missing: DiabetesSchema.Names(),
		},
		{
			name: "two food fields absent",
			req: Request{
				"calories": 1.0, "cal_fat": 1.0, "total_fat": 1.0, "sat_fat": 1.0,
				"cholesterol": 1.0, "sodium": 1.0, "total_carb": 1.0, "fiber": 1.0, "sugar": 1.0,
			},
			schema:  FoodSchema,
			missing: []string{"trans_fat", "protein"},
		},
		{
			name:    "null counts as missing",
			req:     Request{"age": nil, "height": 160.0, "weight": 55.0, "preg_stage": "firstTrimester", "active": "sedentary"},
			schema:  DietSchema,
			missing: []string{"age"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req, tt.schema)
			var mfe *MissingFieldsError
			require.True(t, errors.As(err, &mfe), "expected MissingFieldsError, got %v", err)
			assert.Equal(t, tt.missing, mfe.Fields)
		})
	}
}

func TestValidate_InvalidCategory(t *testing.T) {
	for _, field := range []string{"gender", "occupation", "bmiCategory"} {
		t.Run(field, func(t *testing.T) {
			req := sleepRequest()
			req[field] = "Astronaut"

			err := Validate(req, SleepStressSchema)
			var ice *InvalidCategoryError
			require.True(t, errors.As(err, &ice), "expected InvalidCategoryError, got %v", err)
			assert.Equal(t, field, ice.Field)
			assert.Equal(t, "Astronaut", ice.Value)
		})
	}
}

func TestValidate_NonStringCategory(t *testing.T) {
	req := sleepRequest()
	req["gender"] = 1.0

	var ice *InvalidCategoryError
	require.ErrorAs(t, Validate(req, SleepStressSchema), &ice)
	assert.Equal(t, "gender", ice.Field)
}

func TestValidate_MissingReportedBeforeCategory(t *testing.T) {
	req := sleepRequest()
	req["gender"] = "Unknown"
	delete(req, "heartRate")

	var mfe *MissingFieldsError
	require.ErrorAs(t, Validate(req, SleepStressSchema), &mfe)
	assert.Equal(t, []string{"heartRate"}, mfe.Fields)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{json.Number("42"), 42, true},
		{3, 3, true},
		{json.Number("abc"), 0, false},
		{"12", 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, err := Number("x", tt.in)
		if tt.ok {
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		} else {
			var ive *InvalidValueError
			assert.ErrorAs(t, err, &ive)
		}
	}
}
