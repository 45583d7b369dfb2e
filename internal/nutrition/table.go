package nutrition

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	colLevel       = "caloric level"
	colKcal        = "Energ_Kcal"
	colDescription = "Shrt_Desc"

	DefaultLimit = 10
	windowKcal   = 100
)

// Food is one row of the nutrition table.
type Food struct {
	Level       string
	Kcal        float64
	Description string
}

// Diet is a recommendation entry, keyed the way clients already expect.
type Diet struct {
	Description string  `json:"Shrt_Desc"`
	Kcal        float64 `json:"Energ_Kcal"`
}

// Table is loaded once and never mutated, so it is safe for concurrent readers.
type Table struct {
	rows []Food
}

func NewTable(rows []Food) *Table {
	cp := make([]Food, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open nutrition table: %w", err)
	}
	defer file.Close()

	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("rows", t.Len()).
		Msg("Nutrition table loaded")
	return t, nil
}

// ReadTable parses CSV with at least the caloric level, Energ_Kcal and Shrt_Desc
// columns. Rows with an unparseable kcal value are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{colLevel, colKcal, colDescription} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []Food
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		kcal, err := strconv.ParseFloat(strings.TrimSpace(field(record, idx[colKcal])), 64)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, Food{
			Level:       strings.TrimSpace(field(record, idx[colLevel])),
			Kcal:        kcal,
			Description: field(record, idx[colDescription]),
		})
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Skipped nutrition rows with invalid Energ_Kcal")
	}
	return &Table{rows: rows}, nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// Recommend returns up to limit foods in the level bucket whose kcal lies in
// [value, value+100], highest kcal first. limit <= 0 means DefaultLimit.
func (t *Table) Recommend(level string, value float64, limit int) []Diet {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if t == nil {
		return []Diet{}
	}

	var bucket []Food
	for _, f := range t.rows {
		if f.Level == level {
			bucket = append(bucket, f)
		}
	}
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].Kcal > bucket[j].Kcal
	})

	diets := make([]Diet, 0, limit)
	for _, f := range bucket {
		if f.Kcal < value || f.Kcal > value+windowKcal {
			continue
		}
		diets = append(diets, Diet{Description: f.Description, Kcal: f.Kcal})
		if len(diets) == limit {
			break
		}
	}
	return diets
}
