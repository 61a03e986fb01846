package db

import (
	"context"
	"fmt"
)

// AirportRow is a staging row from the header-less airports extract.
// Nil fields were empty or the null-marker token in the source.
type AirportRow struct {
	AirportID *string
	Name      *string
	City      *string
	Country   *string
	IATA      *string
	ICAO      *string
	Lat       *string
	Lon       *string
}

// FlightRouteRow is a staging row from the header-less routes extract
type FlightRouteRow struct {
	Airline       *string
	AirlineID     *string
	SourceAirport *string
	SourceID      *string
	DestAirport   *string
	DestID        *string
}

// AirlineRow is a staging row from the header-less airlines extract
type AirlineRow struct {
	AirlineID *string
	Name      *string
	IATA      *string
	ICAO      *string
	Country   *string
}

// StopRow is a staging row from stops.txt
type StopRow struct {
	StopID   *string
	StopName *string
	StopLat  *string
	StopLon  *string
}

// RouteRow is a staging row from routes.txt
type RouteRow struct {
	RouteID        *string
	RouteShortName *string
	RouteDesc      *string
}

// TripRow is a staging row from trips.txt
type TripRow struct {
	RouteID      *string
	ServiceID    *string
	TripID       *string
	TripHeadsign *string
	DirectionID  *string
	ShapeID      *string
}

// StopTimeRow is a staging row from stop_times.txt
type StopTimeRow struct {
	TripID        *string
	ArrivalTime   *string
	DepartureTime *string
	StopID        *string
	StopSequence  *string
}

// CalendarDateRow is a staging row from calendar_dates.txt
type CalendarDateRow struct {
	ServiceID     *string
	Date          *string
	ExceptionType *string
}

// InsertAirports appends airport rows to staging
func (db *DB) InsertAirports(ctx context.Context, rows []AirportRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_openflights_airports
		(airport_id, name, city, country, iata, icao, lat, lon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.AirportID, r.Name, r.City, r.Country, r.IATA, r.ICAO, r.Lat, r.Lon}
		})
}

// InsertFlightRoutes appends flight-route rows to staging
func (db *DB) InsertFlightRoutes(ctx context.Context, rows []FlightRouteRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_openflights_routes
		(airline, airline_id, source_airport, source_id, dest_airport, dest_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.Airline, r.AirlineID, r.SourceAirport, r.SourceID, r.DestAirport, r.DestID}
		})
}

// InsertAirlines appends airline rows to staging
func (db *DB) InsertAirlines(ctx context.Context, rows []AirlineRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_openflights_airlines
		(airline_id, name, iata, icao, country)
		VALUES (?, ?, ?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.AirlineID, r.Name, r.IATA, r.ICAO, r.Country}
		})
}

// InsertStops appends stop rows to staging
func (db *DB) InsertStops(ctx context.Context, rows []StopRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_gtfs_stops
		(stop_id, stop_name, stop_lat, stop_lon)
		VALUES (?, ?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.StopID, r.StopName, r.StopLat, r.StopLon}
		})
}

// InsertRoutes appends route rows to staging
func (db *DB) InsertRoutes(ctx context.Context, rows []RouteRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_gtfs_routes
		(route_id, route_short_name, route_desc)
		VALUES (?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.RouteID, r.RouteShortName, r.RouteDesc}
		})
}

// InsertTrips appends trip rows to staging
func (db *DB) InsertTrips(ctx context.Context, rows []TripRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_gtfs_trips
		(route_id, service_id, trip_id, trip_headsign, direction_id, shape_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.RouteID, r.ServiceID, r.TripID, r.TripHeadsign, r.DirectionID, r.ShapeID}
		})
}

// InsertCalendarDates appends calendar exception rows to staging
func (db *DB) InsertCalendarDates(ctx context.Context, rows []CalendarDateRow) error {
	return db.insertBatch(ctx, `INSERT INTO stg_gtfs_calendar_dates
		(service_id, date, exception_type)
		VALUES (?, ?, ?)`,
		len(rows), func(i int) []interface{} {
			r := rows[i]
			return []interface{}{r.ServiceID, r.Date, r.ExceptionType}
		})
}

// AppendStopTimes appends one read-window of stop_time rows in write-chunks
// of writeChunk rows, each committed separately. The write-chunk size is
// independent of the caller's read-window size.
func (db *DB) AppendStopTimes(ctx context.Context, rows []StopTimeRow, writeChunk int) error {
	if writeChunk < 1 {
		writeChunk = 1
	}
	for start := 0; start < len(rows); start += writeChunk {
		end := start + writeChunk
		if end > len(rows) {
			end = len(rows)
		}
		sub := rows[start:end]
		err := db.insertBatch(ctx, `INSERT INTO stg_gtfs_stop_times
			(trip_id, arrival_time, departure_time, stop_id, stop_sequence)
			VALUES (?, ?, ?, ?, ?)`,
			len(sub), func(i int) []interface{} {
				r := sub[i]
				return []interface{}{r.TripID, r.ArrivalTime, r.DepartureTime, r.StopID, r.StopSequence}
			})
		if err != nil {
			return err
		}
	}
	return nil
}

// insertBatch runs a prepared insert for n rows inside one transaction
func (db *DB) insertBatch(ctx context.Context, query string, n int, args func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}

	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}
