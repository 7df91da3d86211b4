package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
)

type Collector struct {
	reg *prometheus.Registry

	Departures prometheus.Gauge
	Posts      prometheus.Gauge

	Passes        prometheus.Counter
	PassErrors    prometheus.Counter
	SkippedRows   prometheus.Counter
	DelaySources  *prometheus.CounterVec // source label: scheduled|trip_update|estimated
	StaticLoads   *prometheus.CounterVec // result label: ok|error
	RealtimePolls *prometheus.CounterVec // result label: ok|error

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	PassDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	RefreshInterval prometheus.Gauge // seconds
	WindowMinutes   prometheus.Gauge
}

func NewCollector(refreshInterval time.Duration, windowMinutes int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Departures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "departures_board_departures",
			Help: "Departures inside the window after the last pass.",
		}),
		Posts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "departures_board_posts",
			Help: "Posts on the board after the last pass.",
		}),
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "departures_passes_total",
			Help: "Total recomputation passes.",
		}),
		PassErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "departures_pass_errors_total",
			Help: "Total passes that ended with an error.",
		}),
		SkippedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "departures_skipped_rows_total",
			Help: "Total stop_times rows skipped because they could not be resolved.",
		}),
		DelaySources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "departures_delay_source_total",
			Help: "Departures computed, by source of the effective time.",
		}, []string{"source"}),
		StaticLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "departures_static_loads_total",
			Help: "Static GTFS reload attempts.",
		}, []string{"result"}),
		RealtimePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "departures_realtime_polls_total",
			Help: "GTFS-Realtime poll attempts.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "departures_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "departures_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "departures_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "departures_pass_duration_seconds",
			Help:    "Duration of departure board computations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "departures_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "departures_refresh_interval_seconds",
			Help: "Periodic recomputation interval in seconds.",
		}),
		WindowMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "departures_window_minutes",
			Help: "Look-ahead window in minutes.",
		}),
	}

	reg.MustRegister(
		c.Departures, c.Posts,
		c.Passes, c.PassErrors, c.SkippedRows, c.DelaySources,
		c.StaticLoads, c.RealtimePolls,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.PassDuration, c.PublishDuration,
		c.RefreshInterval, c.WindowMinutes,
	)

	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.WindowMinutes.Set(float64(windowMinutes))

	return c
}

// ObservePass records the outcome of one recomputation.
func (c *Collector) ObservePass(d time.Duration, stats board.Stats, err error) {
	c.Passes.Inc()
	c.PassDuration.Observe(d.Seconds())
	if err != nil {
		c.PassErrors.Inc()
	}
	c.Departures.Set(float64(stats.Departures))
	c.Posts.Set(float64(stats.Posts))
	c.SkippedRows.Add(float64(stats.Skipped))
	for source, n := range stats.BySource {
		c.DelaySources.WithLabelValues(string(source)).Add(float64(n))
	}
}

func (c *Collector) ObserveStaticLoad(err error) { c.StaticLoads.WithLabelValues(result(err)).Inc() }

func (c *Collector) ObserveRealtimePoll(err error) { c.RealtimePolls.WithLabelValues(result(err)).Inc() }

func (c *Collector) NATSPublishedInc()               { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()              { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
