// Package vehicles archives raw vehicles-for-route snapshots.
package vehicles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/budairport-bi/transit-etl/internal/config"
	"github.com/budairport-bi/transit-etl/internal/metrics"
)

// Sampler fetches the vehicles-for-route endpoint and writes the raw
// payload to disk. Nothing is normalized; the files are the archive.
type Sampler struct {
	baseURL    string
	key        string
	appVersion string
	routeID    string
	rawDir     string
	client     *http.Client
	mcol       *metrics.Collector
}

// NewSampler creates a vehicles sampler; mcol may be nil
func NewSampler(cfg *config.Config, mcol *metrics.Collector) *Sampler {
	return &Sampler{
		baseURL:    cfg.FeedBaseURL,
		key:        cfg.FeedKey,
		appVersion: cfg.FeedAppVersion,
		routeID:    cfg.FeedRouteID,
		rawDir:     cfg.RawDir,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
		mcol: mcol,
	}
}

// listPayload is parsed only to count vehicles for the log line
type listPayload struct {
	Data struct {
		List []json.RawMessage `json:"list"`
	} `json:"data"`
}

// Sample fetches one snapshot of vehicles on the route and archives it
func (s *Sampler) Sample(ctx context.Context) error {
	polledAt := time.Now().UTC().Truncate(time.Second)

	q := url.Values{}
	q.Set("routeId", s.routeID)
	q.Set("related", "false")
	q.Set("key", s.key)
	q.Set("appVersion", s.appVersion)

	reqURL := s.baseURL + "/vehicles-for-route.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch vehicles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	rawName := fmt.Sprintf("vehicles_%s.json", polledAt.Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(s.rawDir, rawName), body, 0644); err != nil {
		return fmt.Errorf("failed to write raw payload: %w", err)
	}
	if s.mcol != nil {
		s.mcol.RawFiles.Inc()
	}

	count := 0
	var payload listPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		count = len(payload.Data.List)
	}
	if s.mcol != nil {
		s.mcol.VehicleCount.Set(float64(count))
	}

	log.Printf("Vehicles: count=%d file=%s", count, rawName)
	return nil
}
