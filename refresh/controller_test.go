package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
)

var testNow = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

type movingClock struct{ t time.Time }

func (c *movingClock) Now() time.Time { return c.t }

// sequenceSource answers Load with ds or the next queued error.
type sequenceSource struct {
	ds    *gtfs.Dataset
	errs  []error
	calls int
}

func (s *sequenceSource) Load(ctx context.Context) (*gtfs.Dataset, error) {
	var err error
	if s.calls < len(s.errs) {
		err = s.errs[s.calls]
	}
	s.calls++
	if err != nil {
		return nil, err
	}
	return s.ds, nil
}

type staticStub struct {
	ds         *gtfs.Dataset
	loading    bool
	err        error
	onSnapshot func()
}

func (s *staticStub) Snapshot() (*gtfs.Dataset, bool, error) {
	if s.onSnapshot != nil {
		s.onSnapshot()
	}
	return s.ds, s.loading, s.err
}

type realtimeStub struct {
	feed    *gtfsrtpb.FeedMessage
	loading bool
	err     error
}

func (s *realtimeStub) Snapshot() (*gtfsrtpb.FeedMessage, bool, error) {
	return s.feed, s.loading, s.err
}

type recordingSink struct {
	mu     sync.Mutex
	stops  []string
	boards []board.Result
	err    error
	ch     chan struct{}
}

func (s *recordingSink) Publish(stopID string, res board.Result) error {
	s.mu.Lock()
	s.stops = append(s.stops, stopID)
	s.boards = append(s.boards, res)
	s.mu.Unlock()
	if s.ch != nil {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stops)
}

type recordingObserver struct {
	passes int
	last   board.Stats
	errs   []error
}

func (o *recordingObserver) ObservePass(d time.Duration, stats board.Stats, err error) {
	o.passes++
	o.last = stats
	o.errs = append(o.errs, err)
}

func dataset() *gtfs.Dataset {
	return &gtfs.Dataset{
		Routes: []gtfs.Route{{RouteID: "R9", RouteShortName: "9"}},
		Trips:  []gtfs.Trip{{TripID: "T1", RouteID: "R9", ServiceID: "WK", TripHeadsign: "Centrum"}},
		Stops: []gtfs.Stop{
			{StopID: "U1455Z1", PlatformCode: "A"},
			{StopID: "U77Z1", PlatformCode: "1"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopID: "U1455Z1", StopSequence: "1", DepartureTime: "10:05:00"},
			{TripID: "T1", StopID: "U77Z1", StopSequence: "2", DepartureTime: "10:09:00"},
		},
		CalendarDates: []gtfs.CalendarDate{{ServiceID: "WK", Date: "20240506", ExceptionType: "1"}},
	}
}

func newController(static StaticSource, rt RealtimeSource, stopID string) *Controller {
	engine := board.NewEngine(board.Options{Location: time.UTC}, fixedClock(testNow))
	c := New(engine, static, rt, stopID, time.Hour)
	c.clk = fixedClock(testNow)
	return c
}

func TestController_Pass(t *testing.T) {
	sink := &recordingSink{}
	obs := &recordingObserver{}
	c := newController(&staticStub{ds: dataset()}, &realtimeStub{feed: &gtfsrtpb.FeedMessage{}}, "1455")
	c.AddSink(sink)
	c.SetObserver(obs)

	st := c.Snapshot()
	assert.True(t, st.Loading, "loading until the first pass")

	c.Pass()

	st = c.Snapshot()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	assert.Equal(t, "1455", st.StopID)
	assert.Equal(t, testNow, st.LastPass)
	require.Len(t, st.Result.PostList, 1)
	assert.Equal(t, "Centrum", st.Result.PostList[0].Name)
	assert.Equal(t, "5min", st.Result.PostList[0].Departures[0].TimeMark)

	require.Equal(t, 1, sink.count())
	assert.Equal(t, "1455", sink.stops[0])
	assert.Equal(t, 1, obs.passes)
	assert.Equal(t, 1, obs.last.Departures)
	assert.NoError(t, obs.errs[0])
}

func TestController_GuardWithoutDataset(t *testing.T) {
	tests := []struct {
		name        string
		static      *staticStub
		wantLoading bool
		wantErr     string
	}{
		{"static loading", &staticStub{loading: true}, true, ""},
		{"no static yet", &staticStub{}, false, ""},
		{"static error", &staticStub{err: errors.New("download failed")}, false, "download failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			c := newController(tt.static, nil, "1455")
			c.AddSink(sink)
			c.Pass()

			assert.Equal(t, 0, sink.count(), "no pass runs")
			st := c.Snapshot()
			assert.Equal(t, tt.wantLoading, st.Loading)
			if tt.wantErr == "" {
				assert.NoError(t, st.Err)
			} else {
				assert.EqualError(t, st.Err, tt.wantErr)
			}
			assert.Empty(t, st.Result.PostList)
		})
	}
}

func TestController_StaleStatic(t *testing.T) {
	tests := []struct {
		name        string
		static      *staticStub
		wantLoading bool
		wantErr     string
	}{
		{"reloading", &staticStub{ds: dataset(), loading: true}, true, ""},
		{"reload failed", &staticStub{ds: dataset(), err: errors.New("download failed")}, false, "download failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			c := newController(tt.static, nil, "1455")
			c.AddSink(sink)
			c.Pass()

			assert.Equal(t, 1, sink.count())
			st := c.Snapshot()
			assert.Equal(t, tt.wantLoading, st.Loading)
			require.Len(t, st.Result.PostList, 1)
			assert.Equal(t, tt.wantErr, st.Result.Error)
			if tt.wantErr == "" {
				assert.NoError(t, st.Err)
			} else {
				assert.EqualError(t, st.Err, tt.wantErr)
			}
		})
	}
}

func TestController_FailedReloadKeepsAdvancing(t *testing.T) {
	ctx := context.Background()
	clk := &movingClock{t: testNow}
	src := &sequenceSource{ds: dataset(), errs: []error{nil, errors.New("download failed")}}
	static := gtfs.NewProvider(src, nil)
	static.NewBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }
	require.NoError(t, static.Refresh(ctx))

	engine := board.NewEngine(board.Options{Location: time.UTC}, clk)
	c := New(engine, static, nil, "1455", time.Hour)
	c.clk = clk

	c.Pass()
	st := c.Snapshot()
	require.Len(t, st.Result.PostList, 1)
	assert.Equal(t, "5min", st.Result.PostList[0].Departures[0].TimeMark)

	require.Error(t, static.Refresh(ctx))
	ds, _, _ := static.Snapshot()
	require.NotNil(t, ds, "dataset kept after the failed reload")

	clk.t = testNow.Add(4 * time.Minute)
	c.Pass()
	st = c.Snapshot()
	assert.EqualError(t, st.Err, "download failed")
	assert.Equal(t, "download failed", st.Result.Error)
	assert.Equal(t, clk.t, st.LastPass)
	require.Len(t, st.Result.PostList, 1)
	assert.Equal(t, "1min", st.Result.PostList[0].Departures[0].TimeMark)

	// 10:05 departure has left the window by 10:20.
	clk.t = testNow.Add(20 * time.Minute)
	c.Pass()
	st = c.Snapshot()
	assert.Empty(t, st.Result.PostList)
	assert.Equal(t, clk.t, st.LastPass)
}

func TestController_MissingPlatforms(t *testing.T) {
	sink := &recordingSink{}
	c := newController(&staticStub{ds: dataset()}, nil, "999")
	c.AddSink(sink)
	c.Pass()

	st := c.Snapshot()
	assert.ErrorIs(t, st.Err, board.ErrMissingPrerequisites)
	assert.Equal(t, board.ErrMissingPrerequisites.Error(), st.Result.Error)
	assert.Empty(t, st.Result.PostList)
	assert.Equal(t, 1, sink.count(), "the error board is still published")
}

func TestController_RealtimeError(t *testing.T) {
	rt := &realtimeStub{err: errors.New("feed timeout")}
	c := newController(&staticStub{ds: dataset()}, rt, "1455")
	c.Pass()

	st := c.Snapshot()
	assert.EqualError(t, st.Err, "feed timeout")
	assert.Equal(t, "feed timeout", st.Result.Error)
	assert.Len(t, st.Result.PostList, 1, "static board still served")
}

func TestController_ErrorPrecedence(t *testing.T) {
	static := &staticStub{ds: dataset()}
	rt := &realtimeStub{}
	c := newController(static, rt, "999")
	c.Pass()

	static.err = errors.New("static broke")
	rt.err = errors.New("realtime broke")
	assert.ErrorIs(t, c.Snapshot().Err, board.ErrMissingPrerequisites, "pass error first")

	c.SetStop("1455")
	assert.EqualError(t, c.Snapshot().Err, "static broke")

	static.err = nil
	assert.EqualError(t, c.Snapshot().Err, "realtime broke")
}

func TestController_Loading(t *testing.T) {
	rt := &realtimeStub{loading: true}
	c := newController(&staticStub{ds: dataset()}, rt, "1455")
	c.Pass()
	assert.True(t, c.Snapshot().Loading, "realtime loading without any feed")

	rt.feed = &gtfsrtpb.FeedMessage{Header: &gtfsrtpb.FeedHeader{Timestamp: proto.Uint64(1)}}
	assert.False(t, c.Snapshot().Loading, "refreshing an existing feed is not loading")
}

func TestController_SetStop(t *testing.T) {
	c := newController(&staticStub{ds: dataset()}, nil, "1455")
	c.Pass()
	require.NotEmpty(t, c.Snapshot().Result.PostList)

	c.SetStop("77")
	st := c.Snapshot()
	assert.Equal(t, "77", st.StopID)
	assert.Empty(t, st.Result.PostList)
	require.NotNil(t, st.Result.StopID)
	assert.Equal(t, 77, *st.Result.StopID)
	assert.True(t, st.Loading)
	assert.Len(t, c.trigger, 1, "a pass is requested")

	c.Pass()
	st = c.Snapshot()
	require.Len(t, st.Result.PostList, 1)
	assert.Equal(t, "1", st.Result.PostList[0].Departures[0].Platform)
}

func TestController_DiscardsStalePass(t *testing.T) {
	sink := &recordingSink{}
	static := &staticStub{ds: dataset()}
	c := newController(static, nil, "1455")
	c.AddSink(sink)

	// The stop changes while the pass for 1455 is already running.
	static.onSnapshot = func() {
		static.onSnapshot = nil
		c.SetStop("77")
	}
	c.Pass()

	st := c.Snapshot()
	assert.Equal(t, "77", st.StopID)
	assert.Empty(t, st.Result.PostList, "result for the old stop is dropped")
	assert.Equal(t, 0, sink.count())
}

func TestController_NotifyCoalesces(t *testing.T) {
	c := newController(&staticStub{ds: dataset()}, nil, "1455")
	for i := 0; i < 5; i++ {
		c.Notify()
	}
	assert.Len(t, c.trigger, 1)

	c.SetStop("1455")
	assert.Len(t, c.trigger, 1, "same stop is a no-op")
}

func TestController_SinkErrorsAreNotFatal(t *testing.T) {
	failing := &recordingSink{err: errors.New("nats down")}
	ok := &recordingSink{}
	c := newController(&staticStub{ds: dataset()}, nil, "1455")
	c.AddSink(failing)
	c.AddSink(ok)
	c.Pass()

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())
	assert.NoError(t, c.Snapshot().Err)
}

func TestController_Run(t *testing.T) {
	sink := &recordingSink{ch: make(chan struct{}, 1)}
	c := newController(&staticStub{ds: dataset()}, nil, "1455")
	c.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-sink.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no pass ran on start")
	}

	c.Notify()
	select {
	case <-sink.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("notify did not trigger a pass")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	c := New(board.NewEngine(board.Options{}, nil), &staticStub{}, nil, "1455", 0)
	assert.Equal(t, DefaultInterval, c.interval)
}
