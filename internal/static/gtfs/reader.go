// Package gtfs reads the header-bearing schedule extract files. Columns are
// selected by header name regardless of on-disk order, and empty or
// null-marker values are normalized to absence.
package gtfs

import (
	"encoding/csv"
	"errors"
	"io"
	"log"
	"os"
	"strings"
)

// nullMarker is the reserved token the extracts use for a missing value
const nullMarker = `\N`

// LoadStops reads stops.txt
func LoadStops(path string) ([]Stop, error) {
	var stops []Stop
	err := readRows(path, func(rec record) {
		stops = append(stops, Stop{
			StopID:   rec.field("stop_id"),
			StopName: rec.field("stop_name"),
			StopLat:  rec.field("stop_lat"),
			StopLon:  rec.field("stop_lon"),
		})
	})
	return stops, err
}

// LoadRoutes reads routes.txt
func LoadRoutes(path string) ([]Route, error) {
	var routes []Route
	err := readRows(path, func(rec record) {
		routes = append(routes, Route{
			RouteID:        rec.field("route_id"),
			RouteShortName: rec.field("route_short_name"),
			RouteDesc:      rec.field("route_desc"),
		})
	})
	return routes, err
}

// LoadTrips reads trips.txt
func LoadTrips(path string) ([]Trip, error) {
	var trips []Trip
	err := readRows(path, func(rec record) {
		trips = append(trips, Trip{
			RouteID:      rec.field("route_id"),
			ServiceID:    rec.field("service_id"),
			TripID:       rec.field("trip_id"),
			TripHeadsign: rec.field("trip_headsign"),
			DirectionID:  rec.field("direction_id"),
			ShapeID:      rec.field("shape_id"),
		})
	})
	return trips, err
}

// LoadCalendarDates reads calendar_dates.txt
func LoadCalendarDates(path string) ([]CalendarDate, error) {
	var dates []CalendarDate
	err := readRows(path, func(rec record) {
		dates = append(dates, CalendarDate{
			ServiceID:     rec.field("service_id"),
			Date:          rec.field("date"),
			ExceptionType: rec.field("exception_type"),
		})
	})
	return dates, err
}

// record pairs one CSV line with its file's header index
type record struct {
	idx    map[string]int
	fields []string
}

// field returns the named column normalized to absence, or nil when the
// column is missing from the file entirely.
func (r record) field(name string) *string {
	i, ok := r.idx[name]
	if !ok || i >= len(r.fields) {
		return nil
	}
	return normalize(r.fields[i])
}

// normalize maps the empty string and the null-marker token to absence
func normalize(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == nullMarker {
		return nil
	}
	return &v
}

// readRows streams a header-bearing CSV file, calling fn per well-formed
// line. Malformed lines are logged and skipped; any other read error aborts
// the file.
func readRows(path string, fn func(rec record)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return err
	}
	idx := makeIndex(header)

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
			return err
		}
		fn(record{idx: idx, fields: fields})
	}
	return nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	return idx
}
