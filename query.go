package departures

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
	"github.com/theoremus-urban-solutions/gtfs-departures/config"
	"github.com/theoremus-urban-solutions/gtfs-departures/gtfs"
)

const maxStopIDLength = 64

type QueryError struct{ Msg string }

func (e *QueryError) Error() string { return e.Msg }

// parseStopQuery picks the stop a request asks for: stopid, then the p
// preset, then current.
func parseStopQuery(q url.Values, b config.BoardConfig, current string) (string, error) {
	stopID := strings.TrimSpace(q.Get("stopid"))
	preset := strings.TrimSpace(q.Get("p"))
	switch {
	case stopID != "":
	case preset != "":
		s, ok := b.Presets[preset]
		if !ok {
			return "", &QueryError{Msg: "No such preset: " + preset + "."}
		}
		stopID = s
	default:
		stopID = current
	}
	if err := validateStopID(stopID); err != nil {
		return "", err
	}
	return stopID, nil
}

func validateStopID(stopID string) error {
	if stopID == "" {
		return &QueryError{Msg: "You must provide a stopid."}
	}
	if len(stopID) > maxStopIDLength {
		return &QueryError{Msg: "stopid is too long."}
	}
	for _, r := range stopID {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("_-:.", r)) {
			return &QueryError{Msg: "Invalid stopid: " + stopID + "."}
		}
	}
	return nil
}

// ensureStopExists rejects a stop with no platform stops in ds. It passes
// when ds is not loaded yet.
func ensureStopExists(stopID string, ds *gtfs.Dataset, e *board.Engine) error {
	if ds == nil {
		return nil
	}
	if !e.HasPlatforms(ds, stopID) {
		return &QueryError{Msg: "No such stop: " + stopID + "."}
	}
	return nil
}

func buildErrorPayload(msg string) []byte {
	b, _ := json.Marshal(struct {
		Error string `json:"Error"`
	}{Error: msg})
	return b
}
