package arrivals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/budairport-bi/transit-etl/internal/config"
)

type fakeStore struct {
	snapshots int
	arrivals  []Arrival
	headways  []int
	rawFile   string
}

func (s *fakeStore) CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error) {
	s.snapshots++
	return "snap-1", nil
}

func (s *fakeStore) AppendArrivals(ctx context.Context, snapshotID string, polledAt time.Time, rawFile string, records []Arrival) error {
	s.arrivals = append(s.arrivals, records...)
	s.rawFile = rawFile
	return nil
}

func (s *fakeStore) AppendHeadways(ctx context.Context, snapshotID string, polledAt time.Time, rawFile, stopID, routeID string, headways []int) error {
	s.headways = append(s.headways, headways...)
	return nil
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		FeedBaseURL:    baseURL,
		FeedKey:        "test-key",
		FeedAppVersion: "1.1.test",
		FeedStopID:     "BKK_F00950",
		FeedRouteID:    "BKK_1005",
		MinutesAfter:   60,
		FetchTimeout:   5 * time.Second,
		RawDir:         t.TempDir(),
	}
}

func TestPoll_PersistsArrivalsAndRawFile(t *testing.T) {
	body := `{"data":{"entry":{"stopId":"BKK_F00950","arrivalsAndDepartures":[
		{"routeId":"BKK_1005","tripId":"T1","scheduledArrivalTime":1735690000,"predictedArrivalTime":1735690120},
		{"routeId":"BKK_1005","tripId":"T2","scheduledArrivalTime":1735690300}
	]}}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "arrivals-and-departures-for-stop.json") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("stopId"); got != "BKK_F00950" {
			t.Errorf("unexpected stopId: %q", got)
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	store := &fakeStore{}
	poller := NewPoller(store, cfg, nil)

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	if store.snapshots != 1 {
		t.Errorf("expected 1 snapshot, got %d", store.snapshots)
	}
	if len(store.arrivals) != 2 {
		t.Errorf("expected 2 arrival records, got %d", len(store.arrivals))
	}
	// 180s gap between the two predictions (second falls back to scheduled)
	if len(store.headways) != 1 || store.headways[0] != 180 {
		t.Errorf("expected [180] headways, got %v", store.headways)
	}

	// Raw payload archived verbatim
	raw, err := os.ReadFile(filepath.Join(cfg.RawDir, store.rawFile))
	if err != nil {
		t.Fatalf("raw file not written: %v", err)
	}
	if string(raw) != body {
		t.Error("raw file does not match the response body")
	}
}

func TestPoll_FetchFailureSkipsTick(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	store := &fakeStore{}
	poller := NewPoller(store, cfg, nil)

	if err := poller.Poll(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if store.snapshots != 0 {
		t.Errorf("failed tick must not create a snapshot, got %d", store.snapshots)
	}

	entries, err := os.ReadDir(cfg.RawDir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("failed tick must not write raw files, found %d", len(entries))
	}
}

func TestPoll_EmptyPayloadStillCreatesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"entry":{"stopId":"BKK_F00950"}}}`))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	store := &fakeStore{}
	poller := NewPoller(store, cfg, nil)

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if store.snapshots != 1 {
		t.Errorf("empty payload should still snapshot, got %d", store.snapshots)
	}
	if len(store.arrivals) != 0 || len(store.headways) != 0 {
		t.Errorf("no records expected, got %d arrivals %d headways", len(store.arrivals), len(store.headways))
	}
}
