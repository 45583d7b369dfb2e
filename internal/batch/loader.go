// Package batch runs the nutrition calculator and diet filter over a file of
// patients and writes reports for offline review.
package batch

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"healthmania-api/internal/features"
	"healthmania-api/internal/nutrition"

	"github.com/rs/zerolog/log"
)

// Patient is one row of a batch input file.
type Patient struct {
	ID    string          `json:"id"`
	Input nutrition.Input `json:"-"`
}

// SkippedRow records a line the loader could not parse.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

var numericColumns = map[string]bool{"age": true, "height": true, "weight": true}

// Loader collects patients from CSV or JSON-lines files.
type Loader struct {
	patients []Patient
	skipped  []SkippedRow
}

func NewLoader() *Loader {
	return &Loader{patients: make([]Patient, 0)}
}

// LoadFile picks the reader from the file extension: .json/.jsonl, anything else is CSV.
func (l *Loader) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open patient file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		err = l.LoadJSON(file)
	default:
		err = l.LoadCSV(file)
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("file", path).
		Int("patients", len(l.patients)).
		Int("skipped", len(l.skipped)).
		Msg("Patients loaded")
	return nil
}

// LoadCSV reads a header row naming age, height, weight, preg_stage and active.
// An id column is optional; rows without one are numbered by line.
func (l *Loader) LoadCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	indices := make(map[string]int)
	for i, col := range header {
		indices[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range []string{"age", "height", "weight", "preg_stage", "active"} {
		if _, ok := indices[col]; !ok {
			return fmt.Errorf("CSV header missing column %q", col)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			l.skip(line, err.Error())
			continue
		}

		req := make(features.Request, len(indices))
		for col, idx := range indices {
			if idx >= len(record) {
				continue
			}
			v := strings.TrimSpace(record[idx])
			if v == "" {
				continue // empty cells count as absent
			}
			if numericColumns[col] {
				req[col] = json.Number(v)
			} else {
				req[col] = v
			}
		}
		l.add(line, req)
	}
	return nil
}

// LoadJSON reads a stream of request-shaped objects.
func (l *Loader) LoadJSON(r io.Reader) error {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	line := 0
	for decoder.More() {
		line++
		var req features.Request
		if err := decoder.Decode(&req); err != nil {
			var syntax *json.SyntaxError
			if errors.As(err, &syntax) {
				return fmt.Errorf("invalid JSON at record %d: %w", line, err)
			}
			l.skip(line, err.Error())
			continue
		}
		l.add(line, req)
	}
	return nil
}

// add gates req like the recommend_diet endpoint does: every absent field is
// listed in the skip reason.
func (l *Loader) add(line int, req features.Request) {
	if err := features.Validate(req, features.DietSchema); err != nil {
		l.skip(line, err.Error())
		return
	}
	in, err := nutrition.InputFromRequest(req)
	if err != nil {
		l.skip(line, err.Error())
		return
	}

	id := strconv.Itoa(line)
	if v, ok := req["id"]; ok && v != nil {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			id = s
		}
	}
	l.patients = append(l.patients, Patient{ID: id, Input: in})
}

func (l *Loader) skip(line int, reason string) {
	log.Debug().Int("line", line).Str("reason", reason).Msg("Skipping patient row")
	l.skipped = append(l.skipped, SkippedRow{Line: line, Reason: reason})
}

func (l *Loader) Patients() []Patient {
	return l.patients
}

func (l *Loader) Skipped() []SkippedRow {
	return l.skipped
}
