package board

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Skip reasons for stop_times rows that could not become departures
const (
	SkipBadDepartureTime = "bad_departure_time"
	SkipUnknownTrip      = "unknown_trip"
	SkipUnknownRoute     = "unknown_route"
)

// skipInfo holds aggregated information about a specific skip reason
type skipInfo struct {
	count    int
	examples []string
}

// SkipAggregator collects skipped rows during a pass and outputs
// consolidated summaries instead of one line per row.
type SkipAggregator struct {
	skips map[string]*skipInfo
}

// NewSkipAggregator creates a new skip aggregator
func NewSkipAggregator() *SkipAggregator {
	return &SkipAggregator{skips: make(map[string]*skipInfo)}
}

// Add records a skip occurrence with an example ID
func (w *SkipAggregator) Add(reason, exampleID string) {
	if w == nil {
		return
	}
	info := w.skips[reason]
	if info == nil {
		info = &skipInfo{examples: make([]string, 0, 3)}
		w.skips[reason] = info
	}
	info.count++
	if len(info.examples) < 3 {
		info.examples = append(info.examples, exampleID)
	}
}

// Count returns the number of occurrences for reason.
func (w *SkipAggregator) Count(reason string) int {
	if w == nil || w.skips[reason] == nil {
		return 0
	}
	return w.skips[reason].count
}

// Total returns the number of skipped rows across all reasons.
func (w *SkipAggregator) Total() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, info := range w.skips {
		n += info.count
	}
	return n
}

// LogAll outputs all collected skips in consolidated format
func (w *SkipAggregator) LogAll(stopID string) {
	if w == nil || len(w.skips) == 0 {
		return
	}
	reasons := make([]string, 0, len(w.skips))
	for r := range w.skips {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		log.Printf("%s", w.formatMessage(r, stopID, w.skips[r]))
	}
}

func (w *SkipAggregator) formatMessage(reason, stopID string, info *skipInfo) string {
	var description string
	switch reason {
	case SkipBadDepartureTime:
		description = "stop_times rows with an unparseable departure_time"
	case SkipUnknownTrip:
		description = "stop_times rows whose trip is not in trips.txt"
	case SkipUnknownRoute:
		description = "trips whose route is not in routes.txt"
	default:
		description = "rows skipped for " + reason
	}
	return fmt.Sprintf("Board for stop %s skipped %s (%d occurrences). Examples: %s",
		stopID, description, info.count, strings.Join(info.examples, ", "))
}
