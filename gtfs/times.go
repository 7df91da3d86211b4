package gtfs

import (
	"strconv"
	"strings"
	"time"
)

// ParseTime converts a GTFS "HH:MM:SS" value to seconds since the start of
// the service day. Hours may exceed 23. ok is false for anything that is
// not three integer components.
func ParseTime(s string) (secs int, ok bool) {
	if s == "" {
		return 0, false
	}
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + sec, true
}

// SecondsOfDay returns the wall-clock seconds since local midnight of t.
func SecondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// UnixSecondsOfDay converts a unix timestamp to seconds since midnight in loc.
func UnixSecondsOfDay(ts int64, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return SecondsOfDay(time.Unix(ts, 0).In(loc))
}
