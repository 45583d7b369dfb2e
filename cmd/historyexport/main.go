package main

import (
	"encoding/json"
	"flag"
	"io"
	"os"
	"sort"
	"time"

	"healthmania-api/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "data", "History data directory")
		outputPath = flag.String("output", "history.jsonl", "Output file, - for stdout")
		endpoint   = flag.String("endpoint", "", "Endpoint to export (empty for all)")
		days       = flag.Int("days", 0, "Number of days to export (0 for all)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *endpoint != "" && !storage.ValidEndpoint(*endpoint) {
		log.Fatal().Str("endpoint", *endpoint).Msg("Unknown endpoint")
	}

	store, err := storage.OpenReadOnly(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history")
	}
	defer store.Close()

	var since time.Time
	if *days > 0 {
		since = time.Now().AddDate(0, 0, -*days)
	}

	var out io.Writer = os.Stdout
	if *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		out = f
	}

	// Newline-delimited so the records can be streamed into training notebooks.
	encoder := json.NewEncoder(out)
	counts := make(map[string]int)
	var first, last time.Time

	err = store.ForEach(*endpoint, since, func(rec storage.PredictionRecord) error {
		if first.IsZero() || rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
		counts[rec.Endpoint]++
		return encoder.Encode(rec)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	total := 0
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		names = append(names, name)
		total += n
	}
	sort.Strings(names)

	if total == 0 {
		log.Warn().Msg("No records found matching criteria")
		return
	}

	for _, name := range names {
		stored, err := store.Count(name)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", name).Msg("Failed to count stored records")
		}
		log.Info().
			Str("endpoint", name).
			Int("records", counts[name]).
			Int("stored", stored).
			Msg("Exported")
	}
	log.Info().
		Int("total", total).
		Time("from", first).
		Time("to", last).
		Str("output", *outputPath).
		Msg("History export complete")
}
