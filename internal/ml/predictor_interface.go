// Package ml holds the model registry that the prediction endpoints dispatch to.
// Model artifacts (pickled tree ensembles and an ONNX pipeline) are opaque: they
// are executed by a long-lived Python worker or by a remote inference server,
// and reached through the Classifier and Session interfaces.
package ml

import "context"

// Classifier is a tree-ensemble handle.
type Classifier interface {
	// Predict returns one class per row.
	Predict(ctx context.Context, rows [][]float64) ([]int, error)

	// PredictProba returns one probability vector per row.
	PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error)
}

// Session is a graph-inference handle. Run feeds rows to the first graph input
// and returns the first graph output.
type Session interface {
	Run(ctx context.Context, rows [][]float32) ([][]float64, error)
}

// Backend executes an operation against a named, already loaded model.
type Backend interface {
	Invoke(ctx context.Context, model, op string, rows any) ([]byte, error)
	Close() error
}

// MetricsInterface defines metrics methods needed by the registry
type MetricsInterface interface {
	MLPredictionsInc(model string)
	MLFailuresInc(model string)
	MLLatencyObserve(model string, seconds float64)
	MLTimeoutsInc(model string)
	MLModelAgeSet(model string, seconds float64)
}
