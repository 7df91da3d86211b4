package gtfs

// Index stores the static tables keyed by id for fast lookups
type Index struct {
	trips     map[string]Trip
	routes    map[string]Route
	stops     map[string]Stop
	stopTimes map[string]map[string]StopTime // trip_id -> stop_id -> stop time
}

// NewIndex builds lookup maps from a dataset. A nil dataset or missing
// tables yield empty maps; duplicate ids keep the last row.
func NewIndex(ds *Dataset) *Index {
	g := &Index{
		trips:     map[string]Trip{},
		routes:    map[string]Route{},
		stops:     map[string]Stop{},
		stopTimes: map[string]map[string]StopTime{},
	}
	if ds == nil {
		return g
	}
	for _, t := range ds.Trips {
		g.trips[t.TripID] = t
	}
	for _, r := range ds.Routes {
		g.routes[r.RouteID] = r
	}
	for _, s := range ds.Stops {
		g.stops[s.StopID] = s
	}
	for _, st := range ds.StopTimes {
		m, ok := g.stopTimes[st.TripID]
		if !ok {
			m = map[string]StopTime{}
			g.stopTimes[st.TripID] = m
		}
		m[st.StopID] = st
	}
	return g
}

// Accessor methods
func (g *Index) Trip(tripID string) (Trip, bool) {
	t, ok := g.trips[tripID]
	return t, ok
}

func (g *Index) Route(routeID string) (Route, bool) {
	r, ok := g.routes[routeID]
	return r, ok
}

func (g *Index) Stop(stopID string) (Stop, bool) {
	s, ok := g.stops[stopID]
	return s, ok
}

func (g *Index) HasStop(stopID string) bool {
	_, ok := g.stops[stopID]
	return ok
}

// StopTime returns the stop time of a trip at a stop. When a trip visits a
// stop more than once the last row wins.
func (g *Index) StopTime(tripID, stopID string) (StopTime, bool) {
	if m, ok := g.stopTimes[tripID]; ok {
		st, ok2 := m[stopID]
		return st, ok2
	}
	return StopTime{}, false
}

func (g *Index) TripCount() int { return len(g.trips) }
func (g *Index) StopCount() int { return len(g.stops) }
