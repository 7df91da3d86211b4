package board

import (
	"fmt"
	"time"

	"github.com/MKuranowski/go-extra-lib/clock"
	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-departures/tracking"
)

// Clock tells the current time.
type Clock interface {
	Now() time.Time
}

// Stats summarises one pass.
type Stats struct {
	Departures int
	Posts      int
	Skipped    int
	BySource   map[DelaySource]int
}

// Engine computes departure boards. A pass is a pure function of the
// dataset, the realtime feed and the clock reading.
type Engine struct {
	opts Options
	clk  Clock

	// Verbose logs the skipped-row summary of every pass.
	Verbose bool
}

// NewEngine creates an engine. A nil clock uses the system clock.
func NewEngine(opts Options, clk Clock) *Engine {
	if clk == nil {
		clk = clock.System
	}
	return &Engine{opts: opts.withDefaults(), clk: clk}
}

// Options returns the effective options of the engine.
func (e *Engine) Options() Options { return e.opts }

// HasPlatforms reports whether stopID resolves to at least one platform stop in ds.
func (e *Engine) HasPlatforms(ds *gtfs.Dataset, stopID string) bool {
	return len(gtfs.PlatformStops(ds, stopID, e.opts.PlatformPrefix, e.opts.PlatformSeparator)) > 0
}

// Compute runs one pass for stopID. On failure the returned result carries
// the error text and an empty post list; alerts are still attached.
func (e *Engine) Compute(stopID string, ds *gtfs.Dataset, feed *gtfsrtpb.FeedMessage) (res Result, stats Stats, err error) {
	res = NewResult(stopID)
	res.Message = ExtractAlerts(feed, stopID)
	stats.BySource = map[DelaySource]int{}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("departure calculation failed: %v", r)
		}
		if err != nil {
			res.PostList = []Post{}
			res.Error = err.Error()
		}
	}()

	if stopID == "" || ds == nil {
		return res, stats, ErrMissingPrerequisites
	}
	platforms := gtfs.PlatformStops(ds, stopID, e.opts.PlatformPrefix, e.opts.PlatformSeparator)
	if len(platforms) == 0 {
		return res, stats, ErrMissingPrerequisites
	}

	now := e.clk.Now().In(e.opts.Location)
	static := gtfs.NewIndex(ds)
	rt := gtfsrt.NewIndex(feed)
	skips := NewSkipAggregator()

	deps := Calculate(Pass{
		StopID:    stopID,
		Dataset:   ds,
		Static:    static,
		Services:  gtfs.ActiveServices(ds, now),
		Platforms: platforms,
		Realtime:  rt,
		Estimated: tracking.EstimateDelays(static, rt, e.opts.Location),
		Now:       now,
	}, e.opts, skips)

	res.PostList = Aggregate(deps, e.opts.DeparturesPerPost, e.opts.PinnedGroup, e.opts.Language)

	stats.Departures = len(deps)
	stats.Posts = len(res.PostList)
	stats.Skipped = skips.Total()
	for _, d := range deps {
		stats.BySource[d.Source]++
	}
	if e.Verbose {
		skips.LogAll(stopID)
	}
	return res, stats, nil
}
