package board

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMissingPrerequisites is returned when a pass has no stop, no static
// dataset or no platform stops for the target stop.
var ErrMissingPrerequisites = errors.New("missing data or relevant stops for calculation")

// DelaySource records where a departure's effective time came from
type DelaySource string

const (
	SourceScheduled  DelaySource = "scheduled"
	SourceTripUpdate DelaySource = "trip_update"
	SourceEstimated  DelaySource = "estimated"
)

// Departure is one row of a post as served to clients. RouteId carries the
// trip id and LineId the route id.
type Departure struct {
	LineId     string `json:"LineId"`
	LineName   string `json:"LineName"`
	RouteId    string `json:"RouteId"`
	FinalStop  string `json:"FinalStop"`
	IsLowFloor bool   `json:"IsLowFloor"`
	Platform   string `json:"Platform"`
	TimeMark   string `json:"TimeMark"`
}

// Post is a named group of departures, usually a platform or direction
type Post struct {
	PostID     int         `json:"PostID"`
	Name       string      `json:"Name"`
	Departures []Departure `json:"Departures"`
}

// Result is the computed departure board
type Result struct {
	StopID   *int   `json:"StopID"`
	Message  string `json:"Message"`
	PostList []Post `json:"PostList"`
	Error    string `json:"Error"`
}

// NewResult returns the empty board for stopID. StopID is set only when the
// id is numeric.
func NewResult(stopID string) Result {
	r := Result{PostList: []Post{}}
	if n, err := strconv.Atoi(strings.TrimSpace(stopID)); err == nil {
		r.StopID = &n
	}
	return r
}

// PotentialDeparture is a departure before grouping and truncation.
// Times are seconds since local midnight.
type PotentialDeparture struct {
	TripID        string
	RouteID       string
	LineName      string
	FinalStop     string
	IsLowFloor    bool
	GroupingKey   string
	Platform      string
	ScheduledTime int
	EffectiveTime int
	TimeMark      string
	StopID        string
	Source        DelaySource
}

func (d PotentialDeparture) toDeparture() Departure {
	mark := d.TimeMark
	if mark == "" {
		mark = MissingTimeMark
	}
	return Departure{
		LineId:     d.RouteID,
		LineName:   d.LineName,
		RouteId:    d.TripID,
		FinalStop:  d.FinalStop,
		IsLowFloor: d.IsLowFloor,
		Platform:   d.Platform,
		TimeMark:   mark,
	}
}

// Defaults used when Options leave a value unset.
const (
	DefaultWindowMinutes     = 90
	DefaultDeparturesPerPost = 5
	DefaultPastWindow        = 120 * time.Second
	DefaultArrivedMarker     = "**"
	DefaultArrivedFreshness  = 90 * time.Second
	DefaultPlatformPrefix    = "U"
	DefaultPlatformSeparator = "Z"
)

// Options tune a departure board pass
type Options struct {
	WindowMinutes     int
	DeparturesPerPost int
	PastWindow        time.Duration
	// Directions maps stop_id -> direction_id -> group name.
	Directions        map[string]map[string]string
	PinnedGroup       string
	ArrivedMarker     string
	ArrivedFreshness  time.Duration
	PlatformPrefix    string
	PlatformSeparator string
	// Language selects the collation used to order post names.
	Language string
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.WindowMinutes <= 0 {
		o.WindowMinutes = DefaultWindowMinutes
	}
	if o.DeparturesPerPost <= 0 {
		o.DeparturesPerPost = DefaultDeparturesPerPost
	}
	if o.PastWindow <= 0 {
		o.PastWindow = DefaultPastWindow
	}
	if o.ArrivedMarker == "" {
		o.ArrivedMarker = DefaultArrivedMarker
	}
	if o.ArrivedFreshness <= 0 {
		o.ArrivedFreshness = DefaultArrivedFreshness
	}
	if o.PlatformPrefix == "" {
		o.PlatformPrefix = DefaultPlatformPrefix
	}
	if o.PlatformSeparator == "" {
		o.PlatformSeparator = DefaultPlatformSeparator
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}
