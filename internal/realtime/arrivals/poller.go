package arrivals

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/budairport-bi/transit-etl/internal/config"
	"github.com/budairport-bi/transit-etl/internal/metrics"
)

// Store is the subset of the database the poller appends to
type Store interface {
	CreateSnapshot(ctx context.Context, polledAt time.Time) (string, error)
	AppendArrivals(ctx context.Context, snapshotID string, polledAt time.Time, rawFile string, records []Arrival) error
	AppendHeadways(ctx context.Context, snapshotID string, polledAt time.Time, rawFile, stopID, routeID string, headways []int) error
}

// Poller runs one fetch-normalize-persist cycle per tick
type Poller struct {
	store  Store
	cfg    *config.Config
	client *Client
	mcol   *metrics.Collector
}

// NewPoller creates an arrivals poller; mcol may be nil
func NewPoller(store Store, cfg *config.Config, mcol *metrics.Collector) *Poller {
	return &Poller{
		store:  store,
		cfg:    cfg,
		client: NewClient(cfg),
		mcol:   mcol,
	}
}

// Poll runs one tick: fetch the feed, archive the raw payload, normalize
// both response shapes into arrival records, derive headways, and append
// everything to the store. A fetch failure skips the tick; the next scheduled
// tick is the retry.
func (p *Poller) Poll(ctx context.Context) error {
	polledAt := time.Now().UTC().Truncate(time.Second)
	start := time.Now()
	if p.mcol != nil {
		p.mcol.Ticks.Inc()
	}

	payload, raw, err := p.client.FetchArrivals(ctx, p.cfg.FeedStopID, p.cfg.MinutesBefore, p.cfg.MinutesAfter)
	if err != nil {
		if p.mcol != nil {
			p.mcol.FetchFailures.Inc()
		}
		return fmt.Errorf("fetch failed: %w", err)
	}

	// The raw payload is archived on every successful fetch, whether or not
	// normalization yields any records, so every snapshot stays replayable.
	rawName := fmt.Sprintf("arrivals_%s.json", polledAt.Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(p.cfg.RawDir, rawName), raw, 0644); err != nil {
		log.Printf("Warning: failed to write raw payload %s: %v", rawName, err)
	} else if p.mcol != nil {
		p.mcol.RawFiles.Inc()
	}

	records := Normalize(payload, p.cfg.FeedRouteID)
	headways := Headways(records)

	snapshotID, err := p.store.CreateSnapshot(ctx, polledAt)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if len(records) > 0 {
		if err := p.store.AppendArrivals(ctx, snapshotID, polledAt, rawName, records); err != nil {
			return fmt.Errorf("failed to append arrivals: %w", err)
		}
	}
	if len(headways) > 0 {
		if err := p.store.AppendHeadways(ctx, snapshotID, polledAt, rawName,
			p.cfg.FeedStopID, p.cfg.FeedRouteID, headways); err != nil {
			return fmt.Errorf("failed to append headways: %w", err)
		}
	}

	if p.mcol != nil {
		p.mcol.ArrivalRows.Add(float64(len(records)))
		p.mcol.HeadwayRows.Add(float64(len(headways)))
		p.mcol.TickDuration.Observe(time.Since(start).Seconds())
	}

	log.Printf("Arrivals: rows=%d headways=%d file=%s", len(records), len(headways), rawName)
	return nil
}
