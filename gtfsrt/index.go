package gtfsrt

import (
	"strconv"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Index stores the realtime feed keyed by trip_id for fast lookups
type Index struct {
	tripUpdates map[string]*gtfsrtpb.TripUpdate
	vehicles    map[string]VehicleStatus
	timestamp   int64
}

// Decode unmarshals a protobuf-encoded FeedMessage.
func Decode(data []byte) (*gtfsrtpb.FeedMessage, error) {
	fm := &gtfsrtpb.FeedMessage{}
	if err := proto.Unmarshal(data, fm); err != nil {
		return nil, err
	}
	return fm, nil
}

// NewIndex folds a feed into per-trip lookups. For trip updates the entity
// with the greatest timestamp wins, a later entity winning ties. For
// vehicles only reports carrying a timestamp are kept and the greatest one
// wins. Deleted entities are ignored. A nil feed gives empty lookups.
func NewIndex(fm *gtfsrtpb.FeedMessage) *Index {
	idx := &Index{
		tripUpdates: map[string]*gtfsrtpb.TripUpdate{},
		vehicles:    map[string]VehicleStatus{},
	}
	if fm == nil {
		return idx
	}
	idx.timestamp = int64(fm.GetHeader().GetTimestamp())
	for _, e := range fm.GetEntity() {
		if e.GetIsDeleted() {
			continue
		}
		if tu := e.GetTripUpdate(); tu != nil {
			if tripID := tu.GetTrip().GetTripId(); tripID != "" {
				if prev, ok := idx.tripUpdates[tripID]; !ok || tu.GetTimestamp() >= prev.GetTimestamp() {
					idx.tripUpdates[tripID] = tu
				}
			}
		}
		if vp := e.GetVehicle(); vp != nil {
			idx.addVehicle(vp)
		}
	}
	return idx
}

func (idx *Index) addVehicle(vp *gtfsrtpb.VehiclePosition) {
	tripID := vp.GetTrip().GetTripId()
	ts := int64(vp.GetTimestamp())
	if tripID == "" || ts <= 0 {
		return
	}
	if prev, ok := idx.vehicles[tripID]; ok && ts <= prev.Timestamp {
		return
	}
	vs := VehicleStatus{
		TripID:    tripID,
		Status:    vp.GetCurrentStatus(),
		HasStatus: vp.CurrentStatus != nil,
		StopID:    vp.GetStopId(),
		Timestamp: ts,
	}
	if pos := vp.GetPosition(); pos != nil && pos.Latitude != nil && pos.Longitude != nil {
		vs.Lat = float64(pos.GetLatitude())
		vs.Lon = float64(pos.GetLongitude())
		vs.HasPosition = true
		if pos.Speed != nil {
			vs.Speed = float64(pos.GetSpeed())
			vs.HasSpeed = true
		}
	}
	idx.vehicles[tripID] = vs
}

// Accessor methods
func (idx *Index) TripUpdate(tripID string) (*gtfsrtpb.TripUpdate, bool) {
	tu, ok := idx.tripUpdates[tripID]
	return tu, ok
}

func (idx *Index) HasTripUpdate(tripID string) bool {
	_, ok := idx.tripUpdates[tripID]
	return ok
}

func (idx *Index) Vehicle(tripID string) (VehicleStatus, bool) {
	v, ok := idx.vehicles[tripID]
	return v, ok
}

// Vehicles returns all indexed vehicle statuses keyed by trip_id.
func (idx *Index) Vehicles() map[string]VehicleStatus { return idx.vehicles }

// FeedTimestamp returns the feed header timestamp, 0 when absent.
func (idx *Index) FeedTimestamp() int64 { return idx.timestamp }

// DepartureDelay finds the stop_time_update of tripID matching stopID or
// stopSequence and returns its departure delay in seconds.
func (idx *Index) DepartureDelay(tripID, stopID, stopSequence string) (int, bool) {
	tu, ok := idx.tripUpdates[tripID]
	if !ok {
		return 0, false
	}
	for _, stu := range tu.GetStopTimeUpdate() {
		matches := stu.GetStopId() != "" && stu.GetStopId() == stopID
		if !matches && stu.StopSequence != nil {
			matches = strconv.FormatUint(uint64(stu.GetStopSequence()), 10) == stopSequence
		}
		if !matches {
			continue
		}
		if dep := stu.GetDeparture(); dep != nil && dep.Delay != nil {
			return int(dep.GetDelay()), true
		}
		return 0, false
	}
	return 0, false
}
