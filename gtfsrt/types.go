package gtfsrt

import (
	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// VehicleStatus is the latest vehicle report seen for a trip
type VehicleStatus struct {
	TripID      string
	Status      gtfsrtpb.VehiclePosition_VehicleStopStatus
	HasStatus   bool
	StopID      string
	Timestamp   int64
	Lat         float64
	Lon         float64
	HasPosition bool
	Speed       float64
	HasSpeed    bool
}

// StoppedAt reports whether the vehicle is stopped at stopID.
func (v VehicleStatus) StoppedAt(stopID string) bool {
	return v.HasStatus && v.Status == gtfsrtpb.VehiclePosition_STOPPED_AT && v.StopID == stopID
}
