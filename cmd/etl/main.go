package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/budairport-bi/transit-etl/internal/config"
	"github.com/budairport-bi/transit-etl/internal/db"
	"github.com/budairport-bi/transit-etl/internal/segments"
	"github.com/budairport-bi/transit-etl/internal/static/gtfs"
	"github.com/budairport-bi/transit-etl/internal/static/openflights"
)

func main() {
	cfg := config.Load()

	// Command line flags override the environment
	dbPath := flag.String("db", cfg.DatabasePath, "Path to SQLite database")
	dataDir := flag.String("data-dir", cfg.DataDir, "Directory containing the source extracts")
	routeLabel := flag.String("route", cfg.TargetShortName, "Target route short name (or route_desc fragment)")
	hubIATA := flag.String("hub", cfg.HubAirportIATA, "Hub airport IATA code for the flight-routes fact")
	readChunk := flag.Int("read-chunk", cfg.StopTimesReadChunk, "stop_times rows read per window")
	writeChunk := flag.Int("write-chunk", cfg.SQLWriteChunk, "Rows per insert batch")
	flag.Parse()

	log.Printf("Starting batch load: db=%s data=%s route=%s", *dbPath, *dataDir, *routeLabel)
	started := time.Now()

	database, err := db.Connect(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Full reload: every run starts from empty staging and warehouse tables
	if err := database.TruncateForReload(ctx); err != nil {
		log.Fatalf("Failed to truncate tables: %v", err)
	}
	log.Println("Staging and warehouse tables truncated")

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Staging loads
	// ═══════════════════════════════════════════════════════
	loadOpenFlights(ctx, database, *dataDir)
	loadGTFSDimensions(ctx, database, *dataDir)

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Target route resolution
	// ═══════════════════════════════════════════════════════
	tripFilter := resolveTargetTrips(ctx, database, *routeLabel)

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Chunked stop_times load
	// ═══════════════════════════════════════════════════════
	loadStopTimes(ctx, database, *dataDir, *readChunk, *writeChunk, tripFilter)

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Warehouse build
	// ═══════════════════════════════════════════════════════
	buildWarehouse(ctx, database, *hubIATA)

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Scheduled segments
	// ═══════════════════════════════════════════════════════
	buildSegments(ctx, database, *writeChunk)

	reportCounts(ctx, database)
	log.Printf("Batch load finished in %v", time.Since(started).Round(time.Second))
}

// loadOpenFlights stages the three header-less flight extracts. Each file is
// optional: a missing or unreadable file is logged and skipped so a transit-only
// load still succeeds.
func loadOpenFlights(ctx context.Context, database *db.DB, dataDir string) {
	airportsPath := filepath.Join(dataDir, "airports.dat")
	if airports, err := openflights.LoadAirports(airportsPath); err != nil {
		log.Printf("Skipping airports: %v", err)
	} else {
		rows := make([]db.AirportRow, len(airports))
		for i, a := range airports {
			rows[i] = db.AirportRow{
				AirportID: a.AirportID, Name: a.Name, City: a.City, Country: a.Country,
				IATA: a.IATA, ICAO: a.ICAO, Lat: a.Lat, Lon: a.Lon,
			}
		}
		if err := database.InsertAirports(ctx, rows); err != nil {
			log.Fatalf("Failed to stage airports: %v", err)
		}
		log.Printf("Staged %d airports", len(rows))
	}

	routesPath := filepath.Join(dataDir, "routes.dat")
	if routes, err := openflights.LoadFlightRoutes(routesPath); err != nil {
		log.Printf("Skipping flight routes: %v", err)
	} else {
		rows := make([]db.FlightRouteRow, len(routes))
		for i, r := range routes {
			rows[i] = db.FlightRouteRow{
				Airline: r.Airline, AirlineID: r.AirlineID,
				SourceAirport: r.SourceAirport, SourceID: r.SourceID,
				DestAirport: r.DestAirport, DestID: r.DestID,
			}
		}
		if err := database.InsertFlightRoutes(ctx, rows); err != nil {
			log.Fatalf("Failed to stage flight routes: %v", err)
		}
		log.Printf("Staged %d flight routes", len(rows))
	}

	airlinesPath := filepath.Join(dataDir, "airlines.dat")
	if airlines, err := openflights.LoadAirlines(airlinesPath); err != nil {
		log.Printf("Skipping airlines: %v", err)
	} else {
		rows := make([]db.AirlineRow, len(airlines))
		for i, a := range airlines {
			rows[i] = db.AirlineRow{
				AirlineID: a.AirlineID, Name: a.Name, IATA: a.IATA, ICAO: a.ICAO, Country: a.Country,
			}
		}
		if err := database.InsertAirlines(ctx, rows); err != nil {
			log.Fatalf("Failed to stage airlines: %v", err)
		}
		log.Printf("Staged %d airlines", len(rows))
	}
}

// loadGTFSDimensions stages the small schedule files. Like the flight
// extracts these are individually optional.
func loadGTFSDimensions(ctx context.Context, database *db.DB, dataDir string) {
	if stops, err := gtfs.LoadStops(filepath.Join(dataDir, "stops.txt")); err != nil {
		log.Printf("Skipping stops: %v", err)
	} else {
		rows := make([]db.StopRow, len(stops))
		for i, s := range stops {
			rows[i] = db.StopRow{StopID: s.StopID, StopName: s.StopName, StopLat: s.StopLat, StopLon: s.StopLon}
		}
		if err := database.InsertStops(ctx, rows); err != nil {
			log.Fatalf("Failed to stage stops: %v", err)
		}
		log.Printf("Staged %d stops", len(rows))
	}

	if routes, err := gtfs.LoadRoutes(filepath.Join(dataDir, "routes.txt")); err != nil {
		log.Printf("Skipping routes: %v", err)
	} else {
		rows := make([]db.RouteRow, len(routes))
		for i, r := range routes {
			rows[i] = db.RouteRow{RouteID: r.RouteID, RouteShortName: r.RouteShortName, RouteDesc: r.RouteDesc}
		}
		if err := database.InsertRoutes(ctx, rows); err != nil {
			log.Fatalf("Failed to stage routes: %v", err)
		}
		log.Printf("Staged %d routes", len(rows))
	}

	if trips, err := gtfs.LoadTrips(filepath.Join(dataDir, "trips.txt")); err != nil {
		log.Printf("Skipping trips: %v", err)
	} else {
		rows := make([]db.TripRow, len(trips))
		for i, t := range trips {
			rows[i] = db.TripRow{
				RouteID: t.RouteID, ServiceID: t.ServiceID, TripID: t.TripID,
				TripHeadsign: t.TripHeadsign, DirectionID: t.DirectionID, ShapeID: t.ShapeID,
			}
		}
		if err := database.InsertTrips(ctx, rows); err != nil {
			log.Fatalf("Failed to stage trips: %v", err)
		}
		log.Printf("Staged %d trips", len(rows))
	}

	if dates, err := gtfs.LoadCalendarDates(filepath.Join(dataDir, "calendar_dates.txt")); err != nil {
		log.Printf("Skipping calendar dates: %v", err)
	} else {
		rows := make([]db.CalendarDateRow, len(dates))
		for i, d := range dates {
			rows[i] = db.CalendarDateRow{ServiceID: d.ServiceID, Date: d.Date, ExceptionType: d.ExceptionType}
		}
		if err := database.InsertCalendarDates(ctx, rows); err != nil {
			log.Fatalf("Failed to stage calendar dates: %v", err)
		}
		log.Printf("Staged %d calendar dates", len(rows))
	}
}

// resolveTargetTrips turns the route label into the trip filter for the
// chunked stop_times load. An empty match is not fatal: the load falls back
// to retaining every row.
func resolveTargetTrips(ctx context.Context, database *db.DB, label string) map[string]struct{} {
	routeIDs, err := database.MatchTargetRoutes(ctx, label)
	if err != nil {
		log.Fatalf("Failed to match target routes: %v", err)
	}
	if len(routeIDs) == 0 {
		log.Printf("Warning: no routes matched %q; stop_times will be loaded unfiltered", label)
		return nil
	}
	log.Printf("Route %q matched %d route id(s): %v", label, len(routeIDs), routeIDs)

	tripFilter, err := database.TripIDsForRoutes(ctx, routeIDs)
	if err != nil {
		log.Fatalf("Failed to collect trip ids: %v", err)
	}
	if len(tripFilter) == 0 {
		log.Printf("Warning: matched routes have no trips; stop_times will be loaded unfiltered")
		return nil
	}
	log.Printf("Filtering stop_times to %d trip(s)", len(tripFilter))
	return tripFilter
}

// loadStopTimes streams the one genuinely large file in fixed-size windows.
// Unlike the other extracts this one is required.
func loadStopTimes(ctx context.Context, database *db.DB, dataDir string, readChunk, writeChunk int, tripFilter map[string]struct{}) {
	path := filepath.Join(dataDir, "stop_times.txt")
	if _, err := os.Stat(path); err != nil {
		log.Fatalf("stop_times.txt is required: %v", err)
	}

	if len(tripFilter) == 0 {
		log.Printf("Loading stop_times unfiltered (read window %d rows)", readChunk)
	} else {
		log.Printf("Loading stop_times filtered (read window %d rows)", readChunk)
	}

	retained, err := gtfs.StreamStopTimes(path, readChunk, tripFilter, func(rows []gtfs.StopTime) error {
		batch := make([]db.StopTimeRow, len(rows))
		for i, r := range rows {
			batch[i] = db.StopTimeRow{
				TripID: r.TripID, ArrivalTime: r.ArrivalTime, DepartureTime: r.DepartureTime,
				StopID: r.StopID, StopSequence: r.StopSequence,
			}
		}
		return database.AppendStopTimes(ctx, batch, writeChunk)
	})
	if err != nil {
		log.Fatalf("Failed to load stop_times: %v", err)
	}
	log.Printf("Staged %d stop_time rows", retained)
}

func buildWarehouse(ctx context.Context, database *db.DB, hubIATA string) {
	dateStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dateEnd := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	days, err := database.GenerateDateDim(ctx, dateStart, dateEnd)
	if err != nil {
		log.Fatalf("Failed to generate date dimension: %v", err)
	}
	log.Printf("Date dimension: %d days", days)

	if err := database.BuildDimensions(ctx); err != nil {
		log.Fatalf("Failed to build dimensions: %v", err)
	}
	log.Println("Dimensions built")

	flights, err := database.BuildFlightRoutesFact(ctx, hubIATA)
	if err != nil {
		log.Fatalf("Failed to build flight-routes fact: %v", err)
	}
	log.Printf("Flight-routes fact: %d rows (hub %s)", flights, hubIATA)

	bridged, err := database.BuildServiceDateBridge(ctx)
	if err != nil {
		log.Fatalf("Failed to build service-date bridge: %v", err)
	}
	log.Printf("Service-date bridge: %d rows", bridged)
}

// buildSegments derives adjacent-stop segments per trip and flushes them in
// write-chunks as the trip pages go by, so memory stays bounded even on an
// unfiltered load.
func buildSegments(ctx context.Context, database *db.DB, writeChunk int) {
	if writeChunk < 1 {
		writeChunk = 1
	}

	total := 0
	var pending []segments.Segment
	err := database.StreamTripStopEvents(ctx, func(events []segments.StopEvent) error {
		pending = append(pending, segments.Derive(events)...)
		if len(pending) >= writeChunk {
			if err := database.InsertSegments(ctx, pending, writeChunk); err != nil {
				return err
			}
			total += len(pending)
			pending = pending[:0]
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to derive segments: %v", err)
	}

	if err := database.InsertSegments(ctx, pending, writeChunk); err != nil {
		log.Fatalf("Failed to insert segments: %v", err)
	}
	total += len(pending)
	log.Printf("Scheduled segments: %d rows", total)
}

func reportCounts(ctx context.Context, database *db.DB) {
	tables := []string{
		"stg_openflights_airports", "stg_openflights_routes", "stg_openflights_airlines",
		"stg_gtfs_stops", "stg_gtfs_routes", "stg_gtfs_trips", "stg_gtfs_stop_times", "stg_gtfs_calendar_dates",
		"dw_dim_airport", "dw_dim_stop", "dw_dim_airline", "dw_dim_date", "dw_dim_route_line",
		"dw_fact_flight_routes", "dw_bridge_service_date", "dw_fact_scheduled_segments",
	}
	for _, table := range tables {
		n, err := database.TableCount(ctx, table)
		if err != nil {
			log.Printf("Count %s: %v", table, err)
			continue
		}
		log.Printf("  %-28s %d", table, n)
	}
}
