package gtfs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadStops(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon,extra_col\n"+
			"F00950,Deák Ferenc tér M,47.497,19.054,ignored\n"+
			`F01001,\N,,19.1,x`+"\n")

	stops, err := LoadStops(path)
	if err != nil {
		t.Fatalf("LoadStops failed: %v", err)
	}
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}
	if stops[0].StopID == nil || *stops[0].StopID != "F00950" {
		t.Errorf("unexpected stop_id: %v", stops[0].StopID)
	}
	if stops[0].StopName == nil || *stops[0].StopName != "Deák Ferenc tér M" {
		t.Errorf("unexpected stop_name: %v", stops[0].StopName)
	}
	// Null marker and empty string both become nil
	if stops[1].StopName != nil {
		t.Errorf("null-marker stop_name should be nil, got %q", *stops[1].StopName)
	}
	if stops[1].StopLat != nil {
		t.Errorf("empty stop_lat should be nil, got %q", *stops[1].StopLat)
	}
}

func TestLoadStops_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	// File declares only a subset of columns; the rest come back nil
	path := writeFile(t, dir, "stops.txt",
		"stop_id,stop_name\nF00950,Airport\n")

	stops, err := LoadStops(path)
	if err != nil {
		t.Fatalf("LoadStops failed: %v", err)
	}
	if len(stops) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(stops))
	}
	if stops[0].StopLat != nil || stops[0].StopLon != nil {
		t.Error("undeclared columns should be nil")
	}
}

func TestLoadRoutes_BOMHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.txt",
		"\uFEFFroute_id,route_short_name,route_desc\n"+
			"BKK_1005,100E,Repülőtéri expressz\n")

	routes, err := LoadRoutes(path)
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].RouteID == nil || *routes[0].RouteID != "BKK_1005" {
		t.Errorf("BOM not stripped from header: %v", routes[0].RouteID)
	}
	if routes[0].RouteShortName == nil || *routes[0].RouteShortName != "100E" {
		t.Errorf("unexpected short name: %v", routes[0].RouteShortName)
	}
}

func TestLoadTrips(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trips.txt",
		"route_id,service_id,trip_id,trip_headsign,direction_id,shape_id\n"+
			"BKK_1005,WD,T1,Liszt Ferenc Airport,0,S1\n"+
			"BKK_1005,WE,T2,,1,\n")

	trips, err := LoadTrips(path)
	if err != nil {
		t.Fatalf("LoadTrips failed: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(trips))
	}
	if trips[1].TripHeadsign != nil {
		t.Error("empty headsign should be nil")
	}
	if trips[1].DirectionID == nil || *trips[1].DirectionID != "1" {
		t.Errorf("unexpected direction: %v", trips[1].DirectionID)
	}
}

func TestLoadCalendarDates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "calendar_dates.txt",
		"service_id,date,exception_type\nWD,20250103,1\nWD,20250101,2\n")

	dates, err := LoadCalendarDates(path)
	if err != nil {
		t.Fatalf("LoadCalendarDates failed: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(dates))
	}
	if dates[0].Date == nil || *dates[0].Date != "20250103" {
		t.Errorf("unexpected date: %v", dates[0].Date)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadStops(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_ReadErrorSurfaces(t *testing.T) {
	// A directory opens fine but every read fails; the error must reach the
	// caller, not vanish as a skipped line
	if _, err := LoadStops(t.TempDir()); err == nil {
		t.Error("expected read error for a directory path")
	}
	if _, err := StreamStopTimes(t.TempDir(), 10, nil, func([]StopTime) error { return nil }); err == nil {
		t.Error("expected read error for a directory path")
	}
}
