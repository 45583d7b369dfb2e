// Package storage provides persistent prediction history for the HealthMania API.
// It uses BoltDB as the underlying storage engine. Every successful endpoint
// call can be appended as a PredictionRecord and read back by endpoint, newest
// first or by time range.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions"

	// DBFile is the database file name inside the data directory.
	DBFile = "healthmania-history.db"
)

// Endpoint names used as key prefixes.
const (
	EndpointDiabetes    = "predict_diabetes"
	EndpointFood        = "predict_calorie_health"
	EndpointSleepStress = "predict_sleep_stress"
	EndpointDiet        = "recommend_diet"
)

var endpoints = map[string]bool{
	EndpointDiabetes:    true,
	EndpointFood:        true,
	EndpointSleepStress: true,
	EndpointDiet:        true,
}

// ValidEndpoint reports whether name is a known history endpoint.
func ValidEndpoint(name string) bool {
	return endpoints[name]
}

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	Endpoint  string          `json:"endpoint"`
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Input     map[string]any  `json:"input,omitempty"`
	Outcome   json.RawMessage `json:"outcome"`
}

// Store provides persistent storage for prediction records using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	dbPath := filepath.Join(dataPath, DBFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing history database without taking the write
// lock, so it can be read while the API is running.
func OpenReadOnly(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, DBFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("history database: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// recordKey sorts by endpoint, then time. The sequence suffix keeps records
// written in the same nanosecond distinct.
func recordKey(endpoint string, ts time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s_%020d_%010d", endpoint, ts.UnixNano(), seq))
}

// StorePrediction appends a record. A zero Timestamp is set to now.
func (s *Store) StorePrediction(rec PredictionRecord) error {
	if !ValidEndpoint(rec.Endpoint) {
		return fmt.Errorf("unknown endpoint %q", rec.Endpoint)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		return b.Put(recordKey(rec.Endpoint, rec.Timestamp, seq), data)
	})
}

// GetRecent returns up to limit records for endpoint, newest first.
func (s *Store) GetRecent(endpoint string, limit int) ([]PredictionRecord, error) {
	records := []PredictionRecord{}
	if limit <= 0 {
		return records, nil
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		prefix := []byte(endpoint + "_")

		// '`' sorts right after '_', so seeking to it lands past the last key with prefix.
		k, v := c.Seek([]byte(endpoint + "`"))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}

		for ; k != nil && hasPrefix(k, prefix) && len(records) < limit; k, v = c.Prev() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// GetRange returns records for endpoint with start <= Timestamp <= end, oldest first.
func (s *Store) GetRange(endpoint string, start, end time.Time) ([]PredictionRecord, error) {
	records := []PredictionRecord{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		prefix := []byte(endpoint + "_")
		startKey := recordKey(endpoint, start, 0)
		endKey := []byte(fmt.Sprintf("%s_%020d_~", endpoint, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && compareKeys(k, endKey) <= 0; k, v = c.Next() {
			if !hasPrefix(k, prefix) {
				continue
			}

			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, err
}

// Count returns the number of records stored for endpoint.
func (s *Store) Count(endpoint string) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		prefix := []byte(endpoint + "_")
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func hasPrefix(data, prefix []byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// ForEach walks records in key order (endpoint, then time). An empty endpoint
// walks every endpoint. Records older than since are skipped.
func (s *Store) ForEach(endpoint string, since time.Time, fn func(PredictionRecord) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		var prefix []byte
		k, v := c.First()
		if endpoint != "" {
			prefix = []byte(endpoint + "_")
			k, v = c.Seek(prefix)
		}

		for ; k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var rec PredictionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // Skip malformed records
			}
			if rec.Timestamp.Before(since) {
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
