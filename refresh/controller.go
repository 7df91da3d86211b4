// Package refresh keeps a departure board up to date as time passes and
// new static or realtime data arrives.
package refresh

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MKuranowski/go-extra-lib/clock"
	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
)

// DefaultInterval is the periodic recomputation cadence.
const DefaultInterval = 5 * time.Second

// StaticSource exposes the latest static dataset.
type StaticSource interface {
	Snapshot() (ds *gtfs.Dataset, loading bool, err error)
}

// RealtimeSource exposes the latest realtime feed.
type RealtimeSource interface {
	Snapshot() (feed *gtfsrtpb.FeedMessage, loading bool, err error)
}

// Sink receives every board that a pass produced for the current stop.
type Sink interface {
	Publish(stopID string, res board.Result) error
}

// Observer is told about every completed pass.
type Observer interface {
	ObservePass(d time.Duration, stats board.Stats, err error)
}

// State is the externally visible state of the controller.
type State struct {
	StopID   string
	Result   board.Result
	Loading  bool
	Err      error
	LastPass time.Time
}

// Controller schedules recomputation of the board for one stop. Passes run
// one at a time on the Run goroutine; triggers that arrive while a pass is
// running collapse into a single pending pass.
type Controller struct {
	engine   *board.Engine
	static   StaticSource
	realtime RealtimeSource
	interval time.Duration
	clk      board.Clock
	trigger  chan struct{}

	sinks    []Sink
	observer Observer

	mu        sync.RWMutex
	stopID    string
	gen       uint64
	result    board.Result
	computing bool
	lastErr   error
	lastPass  time.Time
}

// New creates a controller for stopID. realtime may be nil. A non-positive
// interval uses DefaultInterval.
func New(engine *board.Engine, static StaticSource, realtime RealtimeSource, stopID string, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		engine:    engine,
		static:    static,
		realtime:  realtime,
		interval:  interval,
		clk:       clock.System,
		trigger:   make(chan struct{}, 1),
		stopID:    stopID,
		result:    board.NewResult(stopID),
		computing: true,
	}
}

// AddSink registers a sink. Must be called before Run.
func (c *Controller) AddSink(s Sink) { c.sinks = append(c.sinks, s) }

// SetObserver registers the pass observer. Must be called before Run.
func (c *Controller) SetObserver(o Observer) { c.observer = o }

// Notify requests a pass. It never blocks; at most one request is kept pending.
func (c *Controller) Notify() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// StopID returns the stop currently tracked.
func (c *Controller) StopID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopID
}

// SetStop switches the tracked stop. The board is reset to an empty result
// and the outcome of any pass already running for the previous stop is
// discarded.
func (c *Controller) SetStop(stopID string) {
	c.mu.Lock()
	if stopID == c.stopID {
		c.mu.Unlock()
		return
	}
	c.stopID = stopID
	c.gen++
	c.result = board.NewResult(stopID)
	c.lastErr = nil
	c.computing = true
	c.mu.Unlock()
	c.Notify()
}

// Snapshot combines the controller state with the provider states. The
// error is the first of: last pass error, static error, realtime error,
// board error.
func (c *Controller) Snapshot() State {
	_, sLoading, sErr := c.static.Snapshot()
	var feed *gtfsrtpb.FeedMessage
	var rLoading bool
	var rErr error
	if c.realtime != nil {
		feed, rLoading, rErr = c.realtime.Snapshot()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	st := State{
		StopID:   c.stopID,
		Result:   c.result,
		Loading:  sLoading || c.computing || (rLoading && feed == nil),
		LastPass: c.lastPass,
	}
	switch {
	case c.lastErr != nil:
		st.Err = c.lastErr
	case sErr != nil:
		st.Err = sErr
	case rErr != nil:
		st.Err = rErr
	case c.result.Error != "":
		st.Err = errors.New(c.result.Error)
	}
	return st
}

// Run executes passes on every tick and trigger until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	c.Pass()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.Pass()
		case <-c.trigger:
			c.Pass()
		}
	}
}

// Pass runs a single recomputation synchronously. It is a no-op until a
// static dataset exists. A dataset kept across a reload or a failed reload
// is still used, with the provider error written to the board.
func (c *Controller) Pass() {
	c.mu.Lock()
	stopID, gen := c.stopID, c.gen
	c.mu.Unlock()

	ds, sLoading, sErr := c.static.Snapshot()
	if ds == nil {
		if !sLoading {
			c.mu.Lock()
			c.computing = false
			c.mu.Unlock()
		}
		return
	}
	var feed *gtfsrtpb.FeedMessage
	var rErr error
	if c.realtime != nil {
		feed, _, rErr = c.realtime.Snapshot()
	}

	c.mu.Lock()
	c.computing = true
	c.mu.Unlock()

	start := c.clk.Now()
	res, stats, err := c.engine.Compute(stopID, ds, feed)
	if err == nil {
		switch {
		case sErr != nil:
			res.Error = sErr.Error()
		case rErr != nil:
			res.Error = rErr.Error()
		}
	}
	elapsed := c.clk.Now().Sub(start)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.result = res
	c.lastErr = err
	c.computing = false
	c.lastPass = start
	c.mu.Unlock()

	if err != nil && !errors.Is(err, board.ErrMissingPrerequisites) {
		log.Printf("refresh: pass for stop %s failed: %v", stopID, err)
	}
	if c.observer != nil {
		c.observer.ObservePass(elapsed, stats, err)
	}
	for _, s := range c.sinks {
		if perr := s.Publish(stopID, res); perr != nil {
			log.Printf("refresh: publish board for stop %s: %v", stopID, perr)
		}
	}
}
