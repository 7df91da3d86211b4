package gtfs

import "time"

// Route is a row of routes.txt
type Route struct {
	RouteID        string
	RouteShortName string
	RouteLongName  string
	RouteType      string
}

// Trip is a row of trips.txt
type Trip struct {
	TripID               string
	RouteID              string
	ServiceID            string
	TripHeadsign         string
	DirectionID          string // "0", "1" or "" when absent
	WheelchairAccessible string
}

// Stop is a row of stops.txt
type Stop struct {
	StopID       string
	StopName     string
	StopLat      string
	StopLon      string
	PlatformCode string
}

// StopTime is a row of stop_times.txt. StopPlatform is a feed extension
// that overrides the stop's platform_code when present.
type StopTime struct {
	TripID        string
	StopID        string
	StopSequence  string
	ArrivalTime   string
	DepartureTime string
	StopPlatform  string
}

// CalendarEntry is a row of calendar.txt
type CalendarEntry struct {
	ServiceID string
	Monday    string
	Tuesday   string
	Wednesday string
	Thursday  string
	Friday    string
	Saturday  string
	Sunday    string
	StartDate string // YYYYMMDD
	EndDate   string // YYYYMMDD
}

// RunsOn reports whether the weekday column for d is "1".
func (c CalendarEntry) RunsOn(d time.Weekday) bool {
	var v string
	switch d {
	case time.Monday:
		v = c.Monday
	case time.Tuesday:
		v = c.Tuesday
	case time.Wednesday:
		v = c.Wednesday
	case time.Thursday:
		v = c.Thursday
	case time.Friday:
		v = c.Friday
	case time.Saturday:
		v = c.Saturday
	case time.Sunday:
		v = c.Sunday
	}
	return v == "1"
}

// CalendarDate is a row of calendar_dates.txt
type CalendarDate struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType string // "1" added, "2" removed
}

// Dataset is an immutable snapshot of the static tables used by the board.
// Rows keep dataset order.
type Dataset struct {
	Routes        []Route
	Trips         []Trip
	Stops         []Stop
	StopTimes     []StopTime
	Calendar      []CalendarEntry
	CalendarDates []CalendarDate
	FetchedAt     time.Time
}
