package board

import (
	"fmt"
	"math"
)

// MissingTimeMark is shown when a departure has no usable time.
const MissingTimeMark = "--:--"

// TimeMark renders the countdown for a departure at effective seconds of
// day, seen at now seconds of day. Under a minute (or already past) is
// "0min"; more than 30 rounded minutes switches to the clock time "HH:MM",
// wrapping past midnight; anything else is "<N>min".
func TimeMark(effective, now int) string {
	diff := effective - now
	if diff < 60 {
		return "0min"
	}
	minutes := int(math.Round(float64(diff) / 60))
	if minutes > 30 {
		total := effective / 60
		return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
	}
	return fmt.Sprintf("%dmin", minutes)
}
