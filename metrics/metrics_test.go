package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
)

func TestCollector_ObservePass(t *testing.T) {
	c := NewCollector(5*time.Second, 90)

	c.ObservePass(10*time.Millisecond, board.Stats{
		Departures: 7,
		Posts:      3,
		Skipped:    2,
		BySource: map[board.DelaySource]int{
			board.SourceScheduled:  4,
			board.SourceTripUpdate: 2,
			board.SourceEstimated:  1,
		},
	}, nil)
	c.ObservePass(time.Millisecond, board.Stats{}, board.ErrMissingPrerequisites)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Passes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PassErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Departures), "gauges follow the last pass")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SkippedRows))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.DelaySources.WithLabelValues("scheduled")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DelaySources.WithLabelValues("trip_update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DelaySources.WithLabelValues("estimated")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.RefreshInterval))
	assert.Equal(t, 90.0, testutil.ToFloat64(c.WindowMinutes))
}

func TestCollector_Sources(t *testing.T) {
	c := NewCollector(time.Second, 90)
	c.ObserveStaticLoad(nil)
	c.ObserveStaticLoad(errors.New("boom"))
	c.ObserveRealtimePoll(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.StaticLoads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StaticLoads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RealtimePolls.WithLabelValues("ok")))
}

func TestCollector_PublisherMetrics(t *testing.T) {
	c := NewCollector(time.Second, 90)
	c.NATSSetConnected(true)
	c.NATSPublishedInc()
	c.NATSPublishErrInc()
	c.PublishObserve(time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSPublishErrs))

	c.NATSSetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.NATSConnected))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(time.Second, 90)
	c.ObservePass(time.Millisecond, board.Stats{Departures: 3}, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "departures_board_departures 3")
	assert.Contains(t, rec.Body.String(), "departures_pass_duration_seconds_count 1")
}
