// Package tracking estimates schedule deviations from vehicle positions.
//
// Trips that have no trip update in the realtime feed may still report a
// vehicle position. For a vehicle stopped at a stop the delay is the report
// time minus the scheduled departure; for a vehicle in transit the arrival
// at its next stop is projected from the straight-line distance and the
// reported speed, and compared with the scheduled arrival.
package tracking
