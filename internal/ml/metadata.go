package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ModelMetadata is the optional sidecar written next to an artifact at
// training time, as <artifact>.meta.json.
type ModelMetadata struct {
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	Features     []string  `json:"features"`
	Accuracy     float64   `json:"accuracy"`
	TrainingRows int       `json:"training_rows"`
}

func metadataPath(artifact string) string {
	return artifact + ".meta.json"
}

// loadModelMetadata returns nil, nil when no sidecar exists.
func loadModelMetadata(artifact string) (*ModelMetadata, error) {
	file, err := os.Open(metadataPath(artifact))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var md ModelMetadata
	if err := json.NewDecoder(file).Decode(&md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metadataPath(artifact), err)
	}
	return &md, nil
}

// checkFeatureOrder fails when the sidecar lists a different feature order than
// the one the service will send. A mismatch would not error at inference time,
// it would silently produce wrong predictions.
func checkFeatureOrder(md *ModelMetadata, want []string) error {
	if md == nil || len(md.Features) == 0 {
		return nil
	}
	if len(md.Features) != len(want) {
		return fmt.Errorf("model trained on %d features, service sends %d", len(md.Features), len(want))
	}
	for i := range want {
		if md.Features[i] != want[i] {
			return fmt.Errorf("feature %d: model trained on %q, service sends %q", i, md.Features[i], want[i])
		}
	}
	return nil
}
