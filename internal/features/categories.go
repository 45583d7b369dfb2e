package features

// CategoryMap maps a categorical label to the integer code a model was trained on.
type CategoryMap map[string]int

func (m CategoryMap) Code(label string) (int, bool) {
	code, ok := m[label]
	return code, ok
}

var GenderMap = CategoryMap{
	"Female": 0,
	"Male":   1,
}

var OccupationMap = CategoryMap{
	"Accountant":           1,
	"Doctor":               2,
	"Engineer":             3,
	"Lawyer":               4,
	"Manager":              5,
	"Nurse":                6,
	"Salesperson":          7,
	"Sales Representative": 8,
	"Scientist":            9,
	"Software Engineer":    10,
	"Teacher":              11,
}

// "Normal" and "Normal Weight" share a code; the training data used both spellings.
var BMICategoryMap = CategoryMap{
	"Underweight":   0,
	"Normal Weight": 1,
	"Normal":        1,
	"Overweight":    2,
	"Obese":         3,
}
