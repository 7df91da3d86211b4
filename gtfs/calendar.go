package gtfs

import (
	"strings"
	"time"

	"github.com/MKuranowski/go-extra-lib/container/set"
)

// ActiveServices resolves the service ids running on the calendar day of
// now (in now's location). calendar.txt gives the base set; calendar_dates.txt
// rows for the day are then applied in dataset order.
func ActiveServices(ds *Dataset, now time.Time) set.Set[string] {
	active := set.Set[string]{}
	if ds == nil {
		return active
	}
	today := now.Format("20060102")
	weekday := now.Weekday()

	for _, c := range ds.Calendar {
		if c.RunsOn(weekday) && today >= c.StartDate && today <= c.EndDate {
			active.Add(c.ServiceID)
		}
	}
	for _, cd := range ds.CalendarDates {
		if cd.Date != today {
			continue
		}
		switch cd.ExceptionType {
		case "1":
			active.Add(cd.ServiceID)
		case "2":
			active.Remove(cd.ServiceID)
		}
	}
	return active
}

// PlatformStops returns the platform stop ids belonging to stopID: every
// stop whose id starts with prefix+stopID+separator. When none match and
// stopID is itself a known stop, the set is {stopID}.
func PlatformStops(ds *Dataset, stopID, prefix, separator string) set.Set[string] {
	ids := set.Set[string]{}
	if ds == nil || stopID == "" {
		return ids
	}
	idPrefix := prefix + stopID + separator
	known := false
	for _, s := range ds.Stops {
		if s.StopID == "" {
			continue
		}
		if strings.HasPrefix(s.StopID, idPrefix) {
			ids.Add(s.StopID)
		}
		if s.StopID == stopID {
			known = true
		}
	}
	if len(ids) == 0 && known {
		ids.Add(stopID)
	}
	return ids
}
