package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/budairport-bi/transit-etl/internal/config"
	"github.com/budairport-bi/transit-etl/internal/db"
	"github.com/budairport-bi/transit-etl/internal/metrics"
	"github.com/budairport-bi/transit-etl/internal/realtime/arrivals"
	"github.com/budairport-bi/transit-etl/internal/realtime/vehicles"
)

func main() {
	log.Println("Starting arrivals collector...")

	cfg := config.Load()
	log.Printf("Config loaded: stop=%s route=%s poll_interval=%v", cfg.FeedStopID, cfg.FeedRouteID, cfg.PollInterval)

	if err := os.MkdirAll(cfg.RawDir, 0755); err != nil {
		log.Fatalf("Failed to create raw directory %s: %v", cfg.RawDir, err)
	}

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	log.Println("Database initialized")

	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PollInterval)
		mcol.Serve(cfg.MetricsAddr)
	}

	poller := arrivals.NewPoller(database, cfg, mcol)

	var sampler *vehicles.Sampler
	if cfg.VehiclesEnabled {
		sampler = vehicles.NewSampler(cfg, mcol)
		log.Println("Vehicle sampling enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial poll immediately
	log.Println("Running initial poll...")
	pollOnce(context.Background(), poller, sampler, database, cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tickLoop(ctx, cfg.PollInterval, func(tickCtx context.Context) {
			pollOnce(tickCtx, poller, sampler, database, cfg)
		})
	}()

	log.Printf("Collector running (poll every %v, retain %v)", cfg.PollInterval, cfg.RetentionDuration)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	// The in-flight cycle finishes before exit
	wg.Wait()
	log.Println("Goodbye!")
}

// tickLoop invokes tick once per interval until ctx is cancelled. Cancellation
// is observed only between ticks: a cycle already running gets a context
// detached from the loop's, so it always completes its fetch and writes.
func tickLoop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick(context.WithoutCancel(ctx))
		case <-ctx.Done():
			log.Println("Polling loop stopped")
			return
		}
	}
}

// pollOnce runs one tick. A failed tick is logged and skipped; the next tick
// is the retry.
func pollOnce(ctx context.Context, poller *arrivals.Poller, sampler *vehicles.Sampler, database *db.DB, cfg *config.Config) {
	if err := poller.Poll(ctx); err != nil {
		log.Printf("Arrivals poll failed: %v", err)
	}

	if sampler != nil {
		if err := sampler.Sample(ctx); err != nil {
			log.Printf("Vehicle sample failed: %v", err)
		}
	}

	if cfg.RetentionDuration > 0 {
		if err := database.Cleanup(ctx, cfg.RetentionDuration); err != nil {
			log.Printf("Cleanup failed: %v", err)
		}
	}
}
