// Package metrics exposes Prometheus counters for the collector process.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the collector-process metrics on a private registry
type Collector struct {
	reg *prometheus.Registry

	Ticks         prometheus.Counter
	FetchFailures prometheus.Counter
	ArrivalRows   prometheus.Counter
	HeadwayRows   prometheus.Counter
	RawFiles      prometheus.Counter
	VehicleCount  prometheus.Gauge

	TickDuration prometheus.Histogram

	PollInterval prometheus.Gauge // seconds
}

// NewCollector creates and registers the collector metrics
func NewCollector(pollInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_ticks_total",
			Help: "Total poll ticks started.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_fetch_failures_total",
			Help: "Total failed feed fetches (tick skipped).",
		}),
		ArrivalRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_arrival_rows_total",
			Help: "Total arrival records appended.",
		}),
		HeadwayRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_headway_rows_total",
			Help: "Total headway records appended.",
		}),
		RawFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_raw_files_total",
			Help: "Total raw payload files written.",
		}),
		VehicleCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_vehicles_on_route",
			Help: "Vehicles seen on the target route in the last sample.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collector_tick_duration_seconds",
			Help:    "Duration of a full fetch-normalize-persist tick.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_poll_interval_seconds",
			Help: "Configured poll interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.Ticks, c.FetchFailures, c.ArrivalRows, c.HeadwayRows,
		c.RawFiles, c.VehicleCount, c.TickDuration, c.PollInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())

	return c
}

// Handler returns the /metrics handler for the private registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on the given address
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
