package features

// Field is one input column of a model. Categories is nil for numeric fields.
type Field struct {
	Name       string
	Categories CategoryMap
}

// Schema is the exact, ordered list of fields a model was trained on.
type Schema struct {
	Name   string
	Fields []Field
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) Len() int { return len(s.Fields) }

func numeric(names ...string) []Field {
	fields := make([]Field, len(names))
	for i, n := range names {
		fields[i] = Field{Name: n}
	}
	return fields
}

var DiabetesSchema = Schema{
	Name: "diabetes",
	Fields: numeric(
		"Pregnancies", "Glucose", "BloodPressure", "SkinThickness",
		"Insulin", "BMI", "DiabetesPedigreeFunction", "Age",
	),
}

// FoodSchema feeds both the food-health and the calorie-level classifiers.
var FoodSchema = Schema{
	Name: "food",
	Fields: numeric(
		"calories", "cal_fat", "total_fat", "sat_fat", "trans_fat",
		"cholesterol", "sodium", "total_carb", "fiber", "sugar", "protein",
	),
}

var SleepStressSchema = Schema{
	Name: "sleep_stress",
	Fields: []Field{
		{Name: "gender", Categories: GenderMap},
		{Name: "age"},
		{Name: "occupation", Categories: OccupationMap},
		{Name: "sleepDuration"},
		{Name: "qualityOfSleep"},
		{Name: "physicalActivity"},
		{Name: "bmiCategory", Categories: BMICategoryMap},
		{Name: "heartRate"},
		{Name: "dailySteps"},
		{Name: "systolicBP"},
		{Name: "diastolicBP"},
	},
}

// DietSchema only gates presence; the nutrition calculator does its own typing.
var DietSchema = Schema{
	Name:   "diet",
	Fields: numeric("age", "height", "weight", "preg_stage", "active"),
}
