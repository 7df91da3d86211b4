package board

import (
	"time"

	"github.com/MKuranowski/go-extra-lib/container/set"

	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfsrt"
)

const (
	unknownDestination = "Unknown Destination"
	notAvailable       = "N/A"
)

// Pass holds everything derived for one recomputation.
type Pass struct {
	StopID    string
	Dataset   *gtfs.Dataset
	Static    *gtfs.Index
	Services  set.Set[string]
	Platforms set.Set[string]
	Realtime  *gtfsrt.Index
	Estimated map[string]int
	Now       time.Time
}

// Calculate walks stop_times in dataset order and returns the departures
// from the platform stops that fall inside the time window. Rows that cannot
// be resolved are skipped and recorded in skips (which may be nil).
func Calculate(p Pass, opts Options, skips *SkipAggregator) []PotentialDeparture {
	opts = opts.withDefaults()
	if p.Dataset == nil || p.Static == nil {
		return nil
	}
	rt := p.Realtime
	if rt == nil {
		rt = gtfsrt.NewIndex(nil)
	}
	now := p.Now.In(opts.Location)
	nowSecs := gtfs.SecondsOfDay(now)
	nowUnix := p.Now.Unix()
	windowStart := nowSecs - int(opts.PastWindow/time.Second)
	windowEnd := nowSecs + opts.WindowMinutes*60
	freshness := int64(opts.ArrivedFreshness / time.Second)

	var out []PotentialDeparture
	for _, st := range p.Dataset.StopTimes {
		if _, ok := p.Platforms[st.StopID]; !ok {
			continue
		}
		sched, ok := gtfs.ParseTime(st.DepartureTime)
		if !ok {
			skips.Add(SkipBadDepartureTime, st.TripID+"@"+st.StopID)
			continue
		}
		trip, ok := p.Static.Trip(st.TripID)
		if !ok {
			skips.Add(SkipUnknownTrip, st.TripID)
			continue
		}
		if _, ok := p.Services[trip.ServiceID]; !ok {
			continue
		}
		route, ok := p.Static.Route(trip.RouteID)
		if !ok {
			skips.Add(SkipUnknownRoute, trip.RouteID)
			continue
		}

		effective, source := sched, SourceScheduled
		if delay, ok := rt.DepartureDelay(trip.TripID, st.StopID, st.StopSequence); ok {
			effective, source = sched+delay, SourceTripUpdate
		} else if delay, ok := p.Estimated[trip.TripID]; ok {
			effective, source = sched+delay, SourceEstimated
		}
		if effective < windowStart || effective > windowEnd {
			continue
		}

		mark := TimeMark(effective, nowSecs)
		if nowSecs > effective {
			if vs, ok := rt.Vehicle(trip.TripID); ok && vs.StoppedAt(st.StopID) && nowUnix-vs.Timestamp < freshness {
				mark = opts.ArrivedMarker
			}
		}

		out = append(out, PotentialDeparture{
			TripID:        trip.TripID,
			RouteID:       route.RouteID,
			LineName:      firstNonEmpty(route.RouteShortName, route.RouteLongName, notAvailable),
			FinalStop:     firstNonEmpty(trip.TripHeadsign, notAvailable),
			IsLowFloor:    trip.WheelchairAccessible == "1",
			GroupingKey:   groupingKey(opts.Directions, p.StopID, trip),
			Platform:      platformLabel(p.Static, st),
			ScheduledTime: sched,
			EffectiveTime: effective,
			TimeMark:      mark,
			StopID:        st.StopID,
			Source:        source,
		})
	}
	return out
}

// groupingKey picks the post a trip belongs to: a configured direction name
// for the target stop, else "Direction <id>", else the headsign.
func groupingKey(directions map[string]map[string]string, stopID string, trip gtfs.Trip) string {
	if trip.DirectionID == "" {
		return firstNonEmpty(trip.TripHeadsign, unknownDestination)
	}
	if name := directions[stopID][trip.DirectionID]; name != "" {
		return name
	}
	return "Direction " + trip.DirectionID
}

func platformLabel(static *gtfs.Index, st gtfs.StopTime) string {
	if st.StopPlatform != "" {
		return st.StopPlatform
	}
	if stop, ok := static.Stop(st.StopID); ok {
		return stop.PlatformCode
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
