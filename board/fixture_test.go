package board

import (
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-departures/tracking"
)

// testNow is Monday 2024-05-06 10:00:00 UTC.
var testNow = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func testOptions() Options {
	return Options{Location: time.UTC}
}

func fixtureDataset() *gtfs.Dataset {
	return &gtfs.Dataset{
		Routes: []gtfs.Route{
			{RouteID: "R9", RouteShortName: "9", RouteLongName: "Nine"},
			{RouteID: "R22", RouteLongName: "Twenty-two"},
			{RouteID: "R0"},
		},
		Trips: []gtfs.Trip{
			{TripID: "T1", RouteID: "R9", ServiceID: "WK", TripHeadsign: "Centrum", DirectionID: "0", WheelchairAccessible: "1"},
			{TripID: "T2", RouteID: "R22", ServiceID: "WK", TripHeadsign: "Depot", DirectionID: "1", WheelchairAccessible: "2"},
			{TripID: "T3", RouteID: "R9", ServiceID: "SAT", TripHeadsign: "Centrum", DirectionID: "0"},
			{TripID: "T4", RouteID: "R0", ServiceID: "WK"},
			{TripID: "T5", RouteID: "RX", ServiceID: "WK", TripHeadsign: "Nowhere"},
			{TripID: "T6", RouteID: "R9", ServiceID: "WK", TripHeadsign: "Airport"},
		},
		Stops: []gtfs.Stop{
			{StopID: "U1455Z1", StopName: "Main Square", PlatformCode: "A", StopLat: "50.0", StopLon: "14.0"},
			{StopID: "U1455Z2", StopName: "Main Square", PlatformCode: "B", StopLat: "50.0", StopLon: "14.0"},
			{StopID: "U77Z1", StopName: "Elsewhere"},
		},
		StopTimes: []gtfs.StopTime{
			{TripID: "T1", StopID: "U1455Z1", StopSequence: "3", DepartureTime: "10:05:00", ArrivalTime: "10:04:30"},
			{TripID: "T2", StopID: "U1455Z2", StopSequence: "7", DepartureTime: "10:10:00", ArrivalTime: "10:10:00", StopPlatform: "B2"},
			{TripID: "T3", StopID: "U1455Z1", StopSequence: "3", DepartureTime: "10:06:00"},
			{TripID: "T4", StopID: "U1455Z1", StopSequence: "1", DepartureTime: "10:20:00"},
			{TripID: "T5", StopID: "U1455Z1", StopSequence: "1", DepartureTime: "10:21:00"},
			{TripID: "T6", StopID: "U1455Z2", StopSequence: "2", DepartureTime: "bogus"},
			{TripID: "T9", StopID: "U1455Z2", StopSequence: "2", DepartureTime: "10:30:00"},
			{TripID: "T1", StopID: "U77Z1", StopSequence: "4", DepartureTime: "10:07:00"},
		},
		Calendar: []gtfs.CalendarEntry{
			{ServiceID: "WK", Monday: "1", Tuesday: "1", Wednesday: "1", Thursday: "1", Friday: "1", Saturday: "0", Sunday: "0", StartDate: "20240101", EndDate: "20241231"},
			{ServiceID: "SAT", Monday: "0", Tuesday: "0", Wednesday: "0", Thursday: "0", Friday: "0", Saturday: "1", Sunday: "0", StartDate: "20240101", EndDate: "20241231"},
		},
	}
}

// buildPass derives a pass the same way the engine does.
func buildPass(ds *gtfs.Dataset, fm *gtfsrtpb.FeedMessage, now time.Time, stopID string) Pass {
	static := gtfs.NewIndex(ds)
	rt := gtfsrt.NewIndex(fm)
	return Pass{
		StopID:    stopID,
		Dataset:   ds,
		Static:    static,
		Services:  gtfs.ActiveServices(ds, now),
		Platforms: gtfs.PlatformStops(ds, stopID, "U", "Z"),
		Realtime:  rt,
		Estimated: tracking.EstimateDelays(static, rt, time.UTC),
		Now:       now,
	}
}

func tripUpdateEntity(tripID, stopID string, delay int32) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String("tu-" + tripID),
		TripUpdate: &gtfsrtpb.TripUpdate{
			Trip: &gtfsrtpb.TripDescriptor{TripId: proto.String(tripID)},
			StopTimeUpdate: []*gtfsrtpb.TripUpdate_StopTimeUpdate{{
				StopId:    proto.String(stopID),
				Departure: &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: proto.Int32(delay)},
			}},
		},
	}
}

func vehicleEntity(tripID, stopID string, status gtfsrtpb.VehiclePosition_VehicleStopStatus, at time.Time) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String("vp-" + tripID),
		Vehicle: &gtfsrtpb.VehiclePosition{
			Trip:          &gtfsrtpb.TripDescriptor{TripId: proto.String(tripID)},
			Timestamp:     proto.Uint64(uint64(at.Unix())),
			CurrentStatus: status.Enum(),
			StopId:        proto.String(stopID),
			Position:      &gtfsrtpb.Position{Latitude: proto.Float32(50), Longitude: proto.Float32(14)},
		},
	}
}

func alertEntity(id, header, description string, stopIDs ...string) *gtfsrtpb.FeedEntity {
	a := &gtfsrtpb.Alert{}
	for _, s := range stopIDs {
		a.InformedEntity = append(a.InformedEntity, &gtfsrtpb.EntitySelector{StopId: proto.String(s)})
	}
	if header != "" {
		a.HeaderText = translated(header)
	}
	if description != "" {
		a.DescriptionText = translated(description)
	}
	return &gtfsrtpb.FeedEntity{Id: proto.String(id), Alert: a}
}

func translated(text string) *gtfsrtpb.TranslatedString {
	return &gtfsrtpb.TranslatedString{Translation: []*gtfsrtpb.TranslatedString_Translation{{Text: proto.String(text)}}}
}

func feedOf(entities ...*gtfsrtpb.FeedEntity) *gtfsrtpb.FeedMessage {
	return &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{GtfsRealtimeVersion: proto.String("2.0"), Timestamp: proto.Uint64(uint64(testNow.Unix()))},
		Entity: entities,
	}
}

func byTrip(deps []PotentialDeparture) map[string]PotentialDeparture {
	m := map[string]PotentialDeparture{}
	for _, d := range deps {
		m[d.TripID] = d
	}
	return m
}
