package gtfsrt

import (
	"context"
	"errors"
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	fm    *gtfsrtpb.FeedMessage
	err   error
	calls int
}

func (s *stubFetcher) FetchFeed(ctx context.Context, url string) (*gtfsrtpb.FeedMessage, error) {
	s.calls++
	return s.fm, s.err
}

func TestPoller_Poll(t *testing.T) {
	first := feed(1)
	f := &stubFetcher{fm: first}
	changes := 0
	p := NewPoller(f, "http://example.com/rt", func() { changes++ })
	p.NewBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }

	require.NoError(t, p.Poll(context.Background()))
	fm, loading, err := p.Snapshot()
	assert.Same(t, first, fm)
	assert.False(t, loading)
	assert.NoError(t, err)
	assert.Equal(t, 1, changes)

	f.fm, f.err = nil, errors.New("timeout")
	assert.Error(t, p.Poll(context.Background()))
	fm, _, err = p.Snapshot()
	assert.Same(t, first, fm, "failed poll keeps the previous feed")
	assert.EqualError(t, err, "timeout")
	assert.Equal(t, 2, changes)
}

func TestPoller_Retries(t *testing.T) {
	f := &stubFetcher{err: errors.New("down")}
	var observed []error
	p := NewPoller(f, "http://example.com/rt", nil)
	p.NewBackOff = func() backoff.BackOff { return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2) }
	p.Observe = func(err error) { observed = append(observed, err) }

	assert.Error(t, p.Poll(context.Background()))
	assert.Equal(t, 3, f.calls)
	require.Len(t, observed, 1)
	assert.Error(t, observed[0])
}

func TestPoller_NoURL(t *testing.T) {
	f := &stubFetcher{}
	p := NewPoller(f, "", nil)
	assert.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, 0, f.calls)
	fm, loading, err := p.Snapshot()
	assert.Nil(t, fm)
	assert.False(t, loading)
	assert.NoError(t, err)
}
