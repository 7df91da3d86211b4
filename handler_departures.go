package departures

import (
	"encoding/json"
	"errors"
	"net/http"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/theoremus-urban-solutions/gtfs-departures/board"
)

// departuresResponse is the board plus the combined loading flag.
type departuresResponse struct {
	board.Result
	Loading bool `json:"Loading"`
}

// handleDepartures serves the board. The tracked stop comes from the
// controller; any other stop is computed on demand from the current data.
func (h *Handlers) handleDepartures(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write(buildErrorPayload("Method not allowed."))
		return
	}
	current := h.Controller.StopID()
	stopID, err := parseStopQuery(r.URL.Query(), h.Board, current)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload(err.Error()))
		return
	}

	var resp departuresResponse
	if stopID == current {
		st := h.Controller.Snapshot()
		resp.Result, resp.Loading = st.Result, st.Loading
		if st.Err != nil {
			resp.Error = st.Err.Error()
		}
	} else {
		ds, _, _ := h.Static.Snapshot()
		if err := ensureStopExists(stopID, ds, h.Engine); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write(buildErrorPayload(err.Error()))
			return
		}
		resp = h.computeOnDemand(stopID)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// computeOnDemand runs one pass for a stop the controller does not track.
// Error precedence matches the controller: pass, static, realtime.
func (h *Handlers) computeOnDemand(stopID string) departuresResponse {
	ds, sLoading, sErr := h.Static.Snapshot()
	var feed *gtfsrtpb.FeedMessage
	var rLoading bool
	var rErr error
	if h.Realtime != nil {
		feed, rLoading, rErr = h.Realtime.Snapshot()
	}
	resp := departuresResponse{
		Result:  board.NewResult(stopID),
		Loading: sLoading || (rLoading && feed == nil),
	}
	if ds != nil {
		res, _, err := h.Engine.Compute(stopID, ds, feed)
		resp.Result = res
		if err != nil {
			return resp
		}
	}
	switch {
	case sErr != nil:
		resp.Error = sErr.Error()
	case rErr != nil:
		resp.Error = rErr.Error()
	}
	return resp
}

// handleStop switches the stop tracked by the controller (PUT or POST
// with ?stopid= or ?p=).
func (h *Handlers) handleStop(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]string{"stopID": h.Controller.StopID()})
		return
	case http.MethodPut, http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write(buildErrorPayload("Method not allowed."))
		return
	}
	stopID, err := parseStopQuery(r.URL.Query(), h.Board, "")
	if err == nil {
		ds, _, _ := h.Static.Snapshot()
		err = ensureStopExists(stopID, ds, h.Engine)
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(buildErrorPayload(err.Error()))
		return
	}
	h.Controller.SetStop(stopID)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"stopID": stopID})
}
