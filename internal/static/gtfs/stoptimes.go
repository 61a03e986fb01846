package gtfs

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"os"
)

// StreamStopTimes streams stop_times.txt in read-windows of readChunk rows,
// so the file never has to fit in memory. Each window is normalized, filtered
// against tripFilter when the set is non-empty, and handed to sink; an empty
// or nil set retains every row (full-extract fallback). Malformed lines are
// skipped. Returns the total retained row count.
func StreamStopTimes(path string, readChunk int, tripFilter map[string]struct{}, sink func(rows []StopTime) error) (int, error) {
	if readChunk < 1 {
		readChunk = 1
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	idx := makeIndex(header)

	filtered := len(tripFilter) > 0
	total := 0
	window := make([]StopTime, 0, readChunk)

	flush := func() error {
		if len(window) == 0 {
			return nil
		}
		if err := sink(window); err != nil {
			return err
		}
		total += len(window)
		log.Printf("  ... +%d stop_time rows (retained so far: %d)", len(window), total)
		window = window[:0]
		return nil
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				log.Printf("Skipping malformed line in %s: %v", path, err)
				continue
			}
			return total, err
		}

		rec := record{idx: idx, fields: fields}
		row := StopTime{
			TripID:        rec.field("trip_id"),
			ArrivalTime:   rec.field("arrival_time"),
			DepartureTime: rec.field("departure_time"),
			StopID:        rec.field("stop_id"),
			StopSequence:  rec.field("stop_sequence"),
		}

		if filtered {
			if row.TripID == nil {
				continue
			}
			if _, ok := tripFilter[*row.TripID]; !ok {
				continue
			}
		}

		window = append(window, row)
		if len(window) >= readChunk {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
