package gtfsrt

import (
	"context"
	"log"
	"sync"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/cenkalti/backoff/v4"

	"github.com/theoremus-urban-solutions/gtfs-departures/utils"
)

// FeedFetcher yields the latest decoded realtime feed.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) (*gtfsrtpb.FeedMessage, error)
}

// Poller keeps the most recent realtime feed and its loading/error state.
// A failed poll keeps the previous feed.
type Poller struct {
	fetcher  FeedFetcher
	url      string
	onChange func()

	// NewBackOff builds the retry policy for one poll. Nil uses the
	// default exponential policy.
	NewBackOff func() backoff.BackOff

	// Observe, when set, receives the outcome of every attempt cycle.
	Observe func(err error)

	mu      sync.RWMutex
	feed    *gtfsrtpb.FeedMessage
	loading bool
	err     error
}

// NewPoller creates a poller for url. onChange, when set, is called after
// every poll that produced a new feed or error state.
func NewPoller(f FeedFetcher, url string, onChange func()) *Poller {
	return &Poller{fetcher: f, url: url, onChange: onChange}
}

// Snapshot returns the current feed together with the loading and error state.
func (p *Poller) Snapshot() (feed *gtfsrtpb.FeedMessage, loading bool, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.feed, p.loading, p.err
}

// Set installs a feed directly, clearing any error.
func (p *Poller) Set(feed *gtfsrtpb.FeedMessage) {
	p.mu.Lock()
	p.feed, p.loading, p.err = feed, false, nil
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange()
	}
}

// Poll fetches the feed once, retrying with back-off.
func (p *Poller) Poll(ctx context.Context) error {
	if p.url == "" {
		return nil
	}
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	var b backoff.BackOff
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	} else {
		b = utils.NewBackOff(time.Second, 10*time.Second, 30*time.Second, nil)
	}
	feed, err := backoff.RetryNotifyWithData(
		func() (*gtfsrtpb.FeedMessage, error) {
			fm, err := p.fetcher.FetchFeed(ctx, p.url)
			if err != nil && ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return fm, err
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Printf("gtfsrt: backing off %s - poll failed: %v", d, err)
		},
	)

	p.mu.Lock()
	p.loading = false
	if err != nil {
		p.err = err
	} else {
		p.feed, p.err = feed, nil
	}
	p.mu.Unlock()

	if p.Observe != nil {
		p.Observe(err)
	}
	if p.onChange != nil {
		p.onChange()
	}
	return err
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	if err := p.Poll(ctx); err != nil {
		log.Printf("gtfsrt: poll failed: %v", err)
	}
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := p.Poll(ctx); err != nil {
				log.Printf("gtfsrt: poll failed: %v", err)
			}
		}
	}
}
