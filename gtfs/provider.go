package gtfs

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/theoremus-urban-solutions/gtfs-departures/utils"
)

// Provider owns the most recent static dataset and its loading/error state.
type Provider struct {
	source   Source
	onChange func()

	// NewBackOff builds the retry policy for one refresh. Nil uses the
	// default exponential policy.
	NewBackOff func() backoff.BackOff

	// Observe, when set, receives the outcome of every attempt cycle.
	Observe func(err error)

	mu      sync.RWMutex
	ds      *Dataset
	loading bool
	err     error
}

// NewProvider creates a provider. onChange, when set, is called after every
// refresh that changed the dataset or the error state.
func NewProvider(src Source, onChange func()) *Provider {
	return &Provider{source: src, onChange: onChange}
}

// Snapshot returns the current dataset together with the loading and error state.
func (p *Provider) Snapshot() (ds *Dataset, loading bool, err error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ds, p.loading, p.err
}

// Set installs a dataset directly, clearing any error.
func (p *Provider) Set(ds *Dataset) {
	p.mu.Lock()
	p.ds, p.loading, p.err = ds, false, nil
	p.mu.Unlock()
	if p.onChange != nil {
		p.onChange()
	}
}

// Refresh loads the dataset from the source, retrying with back-off.
// An unchanged source keeps the current dataset.
func (p *Provider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()

	var b backoff.BackOff
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	} else {
		b = utils.NewBackOff(2*time.Second, time.Minute, 5*time.Minute, nil)
	}
	ds, err := backoff.RetryNotifyWithData(
		func() (*Dataset, error) {
			ds, err := p.source.Load(ctx)
			if err == nil {
				return ds, nil
			}
			if errors.Is(err, ErrUnchanged) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		},
		backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Printf("gtfs: backing off %s - static load failed: %v", d, err)
		},
	)

	p.mu.Lock()
	p.loading = false
	changed := false
	switch {
	case errors.Is(err, ErrUnchanged):
		if p.err != nil {
			p.err = nil
			changed = true
		}
		err = nil
	case err != nil:
		p.err = err
		changed = true
	default:
		p.ds, p.err = ds, nil
		changed = true
	}
	p.mu.Unlock()

	if p.Observe != nil {
		p.Observe(err)
	}
	if changed && p.onChange != nil {
		p.onChange()
	}
	return err
}

// Run refreshes immediately and then every interval until ctx is done.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if err := p.Refresh(ctx); err != nil {
		log.Printf("gtfs: static refresh failed: %v", err)
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
			if err := p.Refresh(ctx); err != nil {
				log.Printf("gtfs: static refresh failed: %v", err)
			}
		}
	}
}
