package features

import (
	"fmt"
	"strings"
)

// MissingFieldsError lists every required field absent from a request, in schema order.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InvalidCategoryError reports a categorical value with no code in its CategoryMap.
type InvalidCategoryError struct {
	Field string
	Value any
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid value %v for categorical field %s", e.Value, e.Field)
}

// InvalidValueError reports a numeric field that does not hold a usable number.
type InvalidValueError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid value %v for field %s: %s", e.Value, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid value %v for field %s", e.Value, e.Field)
}
