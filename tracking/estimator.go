package tracking

import (
	"math"
	"strconv"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-departures/utils"
)

const (
	// DefaultSpeedMPS is assumed when a vehicle reports no speed.
	DefaultSpeedMPS = 5.0
	// MinSpeedMPS floors the speed used for travel-time projection.
	MinSpeedMPS = 1.0
)

// EstimateDelays returns an estimated delay in seconds per trip_id for trips
// that have no trip update but do have a usable vehicle report. Times of day
// are taken in loc.
func EstimateDelays(static *gtfs.Index, rt *gtfsrt.Index, loc *time.Location) map[string]int {
	delays := map[string]int{}
	if static == nil || rt == nil {
		return delays
	}
	for tripID, vs := range rt.Vehicles() {
		if rt.HasTripUpdate(tripID) {
			continue
		}
		if d, ok := EstimateDelay(static, vs, loc); ok {
			delays[tripID] = d
		}
	}
	return delays
}

// EstimateDelay computes the delay implied by a single vehicle report.
func EstimateDelay(static *gtfs.Index, vs gtfsrt.VehicleStatus, loc *time.Location) (int, bool) {
	if !vs.HasPosition || !vs.HasStatus || vs.StopID == "" || vs.Timestamp <= 0 {
		return 0, false
	}
	st, ok := static.StopTime(vs.TripID, vs.StopID)
	if !ok {
		return 0, false
	}

	switch vs.Status {
	case gtfsrtpb.VehiclePosition_STOPPED_AT:
		sched, ok := gtfs.ParseTime(st.DepartureTime)
		if !ok {
			return 0, false
		}
		return gtfs.UnixSecondsOfDay(vs.Timestamp, loc) - sched, true

	case gtfsrtpb.VehiclePosition_IN_TRANSIT_TO:
		sched, ok := gtfs.ParseTime(st.ArrivalTime)
		if !ok {
			return 0, false
		}
		stop, ok := static.Stop(vs.StopID)
		if !ok {
			return 0, false
		}
		lat, err1 := strconv.ParseFloat(stop.StopLat, 64)
		lon, err2 := strconv.ParseFloat(stop.StopLon, 64)
		if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lon) ||
			math.IsNaN(vs.Lat) || math.IsNaN(vs.Lon) {
			return 0, false
		}
		eta := ProjectArrival(vs, lat, lon)
		return gtfs.UnixSecondsOfDay(eta, loc) - sched, true
	}
	return 0, false
}

// ProjectArrival returns the unix time at which the vehicle reaches the
// given point travelling in a straight line at its reported speed.
func ProjectArrival(vs gtfsrt.VehicleStatus, lat, lon float64) int64 {
	speed := DefaultSpeedMPS
	if vs.HasSpeed {
		speed = vs.Speed
	}
	speed = math.Max(speed, MinSpeedMPS)
	dist := utils.HaversineMeters(vs.Lat, vs.Lon, lat, lon)
	return vs.Timestamp + int64(math.Round(dist/speed))
}
