package features

import (
	"encoding/json"
	"math"
	"strconv"
)

// Request is a decoded request body. JSON null is treated as absent.
type Request map[string]any

func (r Request) Has(name string) bool {
	v, ok := r[name]
	return ok && v != nil
}

// Missing returns the absent names, preserving the order given.
func (r Request) Missing(names []string) []string {
	var missing []string
	for _, n := range names {
		if !r.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Validate checks presence of every schema field, then every categorical value.
// It must pass before Encode is called.
func Validate(req Request, s Schema) error {
	if missing := req.Missing(s.Names()); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	for _, f := range s.Fields {
		if f.Categories == nil {
			continue
		}
		if _, err := categoryCode(f, req[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

func categoryCode(f Field, v any) (int, error) {
	label, ok := v.(string)
	if !ok {
		return 0, &InvalidCategoryError{Field: f.Name, Value: v}
	}
	code, ok := f.Categories.Code(label)
	if !ok {
		return 0, &InvalidCategoryError{Field: f.Name, Value: label}
	}
	return code, nil
}

// Number converts a decoded JSON scalar into a finite float64.
func Number(field string, v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return 0, &InvalidValueError{Field: field, Value: v, Reason: "not a number"}
		}
		f = parsed
	default:
		return 0, &InvalidValueError{Field: field, Value: v, Reason: "expected a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidValueError{Field: field, Value: v, Reason: "not finite"}
	}
	return f, nil
}

// Text reads a string field.
func Text(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &InvalidValueError{Field: field, Value: v, Reason: "expected a string"}
	}
	return s, nil
}
