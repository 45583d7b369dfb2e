package ml

import "fmt"

// InferenceError wraps a failed model call.
type InferenceError struct {
	Model ModelID
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed for model %s: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// DataUnavailableError means a startup dependency (model handle, scaler or
// nutrition table) was never loaded.
type DataUnavailableError struct {
	Resource string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s is not loaded", e.Resource)
}
