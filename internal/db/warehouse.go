package db

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/budairport-bi/transit-etl/internal/segments"
)

// GenerateDateDim fills dw_dim_date over a fixed wide interval so every
// calendar exception is guaranteed a date key.
func (db *DB) GenerateDateDim(ctx context.Context, start, end time.Time) (int, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dw_dim_date
		(date_key, full_date, day_name, is_weekend)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare date insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for curr := start; !curr.After(end); curr = curr.AddDate(0, 0, 1) {
		dateKey := curr.Year()*10000 + int(curr.Month())*100 + curr.Day()
		isWeekend := 0
		if wd := curr.Weekday(); wd == time.Saturday || wd == time.Sunday {
			isWeekend = 1
		}
		if _, err := stmt.ExecContext(ctx,
			dateKey,
			curr.Format("2006-01-02"),
			curr.Weekday().String(),
			isWeekend,
		); err != nil {
			return 0, fmt.Errorf("failed to insert date %d: %w", dateKey, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// BuildDimensions populates the airport, stop, airline and route-line
// dimensions from staging. Route lines are deduplicated to one row per route
// id, preferring a non-empty short name, then short name, then description.
func (db *DB) BuildDimensions(ctx context.Context) error {
	db.LockWrite()
	defer db.UnlockWrite()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []struct {
		name  string
		query string
	}{
		{"dw_dim_airport", `
			INSERT INTO dw_dim_airport (airport_id, name, city, country, iata)
			SELECT DISTINCT CAST(airport_id AS INTEGER), name, city, country, iata
			FROM stg_openflights_airports
			WHERE airport_id IS NOT NULL
			  AND airport_id <> '' AND airport_id NOT GLOB '*[^0-9]*'`},
		{"dw_dim_stop", `
			INSERT INTO dw_dim_stop (stop_id, stop_name)
			SELECT DISTINCT stop_id, stop_name
			FROM stg_gtfs_stops
			WHERE stop_id IS NOT NULL`},
		{"dw_dim_airline", `
			INSERT INTO dw_dim_airline (airline_id, name, iata, country)
			SELECT DISTINCT CAST(airline_id AS INTEGER), name, iata, country
			FROM stg_openflights_airlines
			WHERE airline_id IS NOT NULL
			  AND airline_id <> '' AND airline_id NOT GLOB '*[^0-9]*'`},
		{"dw_dim_route_line", `
			WITH ranked AS (
				SELECT
					TRIM(route_id) AS route_id,
					route_short_name,
					route_desc,
					ROW_NUMBER() OVER (
						PARTITION BY TRIM(route_id)
						ORDER BY
							CASE WHEN route_short_name IS NOT NULL AND TRIM(route_short_name) <> '' THEN 0 ELSE 1 END,
							route_short_name,
							route_desc
					) AS rn
				FROM stg_gtfs_routes
				WHERE route_id IS NOT NULL AND TRIM(route_id) <> ''
			)
			INSERT INTO dw_dim_route_line (route_id, route_short_name, route_desc)
			SELECT route_id, route_short_name, route_desc
			FROM ranked
			WHERE rn = 1`},
	}

	for _, s := range statements {
		if _, err := tx.ExecContext(ctx, s.query); err != nil {
			return fmt.Errorf("failed to build %s: %w", s.name, err)
		}
		log.Printf("Built %s", s.name)
	}

	return tx.Commit()
}

// BuildFlightRoutesFact loads flight routes touching the hub airport, joining
// airlines on either IATA or ICAO code.
func (db *DB) BuildFlightRoutesFact(ctx context.Context, hubIATA string) (int, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO dw_fact_flight_routes (source_airport_id, dest_airport_id, airline_id)
		SELECT
			CAST(r.source_id AS INTEGER),
			CAST(r.dest_id AS INTEGER),
			CAST(a.airline_id AS INTEGER)
		FROM stg_openflights_routes r
		INNER JOIN stg_openflights_airlines a
			ON (r.airline = a.iata OR r.airline = a.icao)
		WHERE (r.source_airport = ? OR r.dest_airport = ?)
		  AND r.source_id <> '' AND r.source_id NOT GLOB '*[^0-9]*'
		  AND r.dest_id <> '' AND r.dest_id NOT GLOB '*[^0-9]*'
		  AND a.airline_id <> '' AND a.airline_id NOT GLOB '*[^0-9]*'
	`, hubIATA, hubIATA)
	if err != nil {
		return 0, fmt.Errorf("failed to build flight routes fact: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// BuildServiceDateBridge joins calendar exceptions to the date dimension.
// exception_type '1' marks the service active on that date.
func (db *DB) BuildServiceDateBridge(ctx context.Context) (int, error) {
	db.LockWrite()
	defer db.UnlockWrite()

	result, err := db.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO dw_bridge_service_date (service_id, date_key, is_active)
		SELECT
			cd.service_id,
			d.date_key,
			CASE WHEN cd.exception_type = '1' THEN 1 ELSE 0 END
		FROM stg_gtfs_calendar_dates cd
		JOIN dw_dim_date d
		  ON d.date_key = CAST(cd.date AS INTEGER)
		WHERE cd.date <> '' AND cd.date NOT GLOB '*[^0-9]*'
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to build service date bridge: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// eventTripPage is how many trips' stop events are materialized per query
const eventTripPage = 500

// StreamTripStopEvents hands each trip's stop events to fn, grouped by trip.
// Trips are read in pages and each page is fully materialized before fn runs,
// so the database's single connection is free inside the callback and the
// caller may write between groups. Events arrive unordered within a trip; the
// segment engine sorts by stop sequence.
func (db *DB) StreamTripStopEvents(ctx context.Context, fn func(events []segments.StopEvent) error) error {
	tripIDs, err := db.eventTripIDs(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(tripIDs); start += eventTripPage {
		end := start + eventTripPage
		if end > len(tripIDs) {
			end = len(tripIDs)
		}
		page, err := db.stopEventsForTrips(ctx, tripIDs[start:end])
		if err != nil {
			return err
		}

		var current []segments.StopEvent
		var currentTrip string
		for _, ev := range page {
			if ev.TripID != currentTrip && len(current) > 0 {
				if err := fn(current); err != nil {
					return err
				}
				current = nil
			}
			currentTrip = ev.TripID
			current = append(current, ev)
		}
		if len(current) > 0 {
			if err := fn(current); err != nil {
				return err
			}
		}
	}
	return nil
}

// eventTripIDs lists the distinct trips that have both a trip row and staged
// stop events, in trip-id order.
func (db *DB) eventTripIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT st.trip_id
		FROM stg_gtfs_stop_times st
		JOIN stg_gtfs_trips t ON t.trip_id = st.trip_id
		WHERE t.route_id IS NOT NULL
		ORDER BY st.trip_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query event trips: %w", err)
	}
	defer rows.Close()

	var tripIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		tripIDs = append(tripIDs, id)
	}
	return tripIDs, rows.Err()
}

// stopEventsForTrips materializes the stop events of one trip page, ordered
// by trip. The result set is closed before this returns.
func (db *DB) stopEventsForTrips(ctx context.Context, tripIDs []string) ([]segments.StopEvent, error) {
	placeholders := strings.TrimRight(strings.Repeat("?,", len(tripIDs)), ",")
	args := make([]interface{}, len(tripIDs))
	for i, id := range tripIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT st.trip_id, t.route_id, t.service_id,
		       st.stop_id, st.arrival_time, st.departure_time, st.stop_sequence
		FROM stg_gtfs_stop_times st
		JOIN stg_gtfs_trips t ON t.trip_id = st.trip_id
		WHERE t.route_id IS NOT NULL AND st.stop_id IS NOT NULL
		  AND st.trip_id IN (`+placeholders+`)
		ORDER BY st.trip_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stop events: %w", err)
	}
	defer rows.Close()

	var events []segments.StopEvent
	for rows.Next() {
		var ev segments.StopEvent
		if err := rows.Scan(&ev.TripID, &ev.RouteID, &ev.ServiceID,
			&ev.StopID, &ev.ArrivalTime, &ev.DepartureTime, &ev.StopSequence); err != nil {
			return nil, fmt.Errorf("failed to scan stop event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// InsertSegments appends derived segments to the scheduled-segments fact in
// write-chunks of writeChunk rows.
func (db *DB) InsertSegments(ctx context.Context, segs []segments.Segment, writeChunk int) error {
	if writeChunk < 1 {
		writeChunk = 1
	}
	for start := 0; start < len(segs); start += writeChunk {
		end := start + writeChunk
		if end > len(segs) {
			end = len(segs)
		}
		sub := segs[start:end]
		err := db.insertBatch(ctx, `INSERT INTO dw_fact_scheduled_segments
			(route_id, service_id, trip_id, from_stop_id, to_stop_id,
			 from_dep_time_sec, to_arr_time_sec, scheduled_dur_sec)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			len(sub), func(i int) []interface{} {
				s := sub[i]
				return []interface{}{
					s.RouteID, s.ServiceID, s.TripID, s.FromStopID, s.ToStopID,
					s.FromDepTimeSec, s.ToArrTimeSec, s.DurationSec,
				}
			})
		if err != nil {
			return err
		}
	}
	return nil
}
