// Package openflights reads the header-less flight master-data extracts.
// Columns map positionally to named fields; records may legitimately be
// shorter than the full layout.
package openflights

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

// Airport is a row from airports.dat (positions 0-7 of the full layout)
type Airport struct {
	AirportID *string
	Name      *string
	City      *string
	Country   *string
	IATA      *string
	ICAO      *string
	Lat       *string
	Lon       *string
}

// FlightRoute is a row from routes.dat (positions 0-5)
type FlightRoute struct {
	Airline       *string
	AirlineID     *string
	SourceAirport *string
	SourceID      *string
	DestAirport   *string
	DestID        *string
}

// Airline is a row from airlines.dat (positions 0, 1, 3, 4, 6; the alias and
// callsign columns are not carried)
type Airline struct {
	AirlineID *string
	Name      *string
	IATA      *string
	ICAO      *string
	Country   *string
}

// LoadAirports reads airports.dat
func LoadAirports(path string) ([]Airport, error) {
	var airports []Airport
	err := readRows(path, func(fields []string) {
		airports = append(airports, Airport{
			AirportID: field(fields, 0),
			Name:      field(fields, 1),
			City:      field(fields, 2),
			Country:   field(fields, 3),
			IATA:      field(fields, 4),
			ICAO:      field(fields, 5),
			Lat:       field(fields, 6),
			Lon:       field(fields, 7),
		})
	})
	return airports, err
}

// LoadFlightRoutes reads routes.dat
func LoadFlightRoutes(path string) ([]FlightRoute, error) {
	var routes []FlightRoute
	err := readRows(path, func(fields []string) {
		routes = append(routes, FlightRoute{
			Airline:       field(fields, 0),
			AirlineID:     field(fields, 1),
			SourceAirport: field(fields, 2),
			SourceID:      field(fields, 3),
			DestAirport:   field(fields, 4),
			DestID:        field(fields, 5),
		})
	})
	return routes, err
}

// LoadAirlines reads airlines.dat
func LoadAirlines(path string) ([]Airline, error) {
	var airlines []Airline
	err := readRows(path, func(fields []string) {
		airlines = append(airlines, Airline{
			AirlineID: field(fields, 0),
			Name:      field(fields, 1),
			IATA:      field(fields, 3),
			ICAO:      field(fields, 4),
			Country:   field(fields, 6),
		})
	})
	return airlines, err
}

// field returns the positional column normalized to absence; positions past
// the end of a short record are absent, not an error.
func field(fields []string, i int) *string {
	if i >= len(fields) {
		return nil
	}
	v := strings.TrimSpace(fields[i])
	if v == "" || v == nullMarker {
		return nil
	}
	return &v
}

// readRows streams a header-less CSV file, calling fn per well-formed line.
// Malformed lines are logged and skipped; any other read error aborts the
// file.
func readRows(path string, fn func(fields []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

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
		fn(fields)
	}
	return nil
}
