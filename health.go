package departures

import (
	"encoding/json"
	"net/http"

	"github.com/theoremus-urban-solutions/gtfs-departures/utils"
)

type healthResponse struct {
	Status                  string `json:"status"`
	StopID                  string `json:"stop_id"`
	LastPass                string `json:"last_pass,omitempty"`
	StaticFetchedAt         string `json:"static_fetched_at,omitempty"`
	LatestGTFSRealtimeEpoch int64  `json:"latest_gtfsrt_epoch"`
	LatestGTFSRealtime      string `json:"latest_gtfsrt,omitempty"`
	Error                   string `json:"error,omitempty"`
}

// handleHealth reports "ok", "loading" or "degraded" (an error is pending).
// The status code is 200 in every case.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	st := h.Controller.Snapshot()
	resp := healthResponse{
		Status:   "ok",
		StopID:   st.StopID,
		LastPass: utils.Iso8601(st.LastPass),
	}
	if ds, _, _ := h.Static.Snapshot(); ds != nil {
		resp.StaticFetchedAt = utils.Iso8601(ds.FetchedAt)
	}
	if h.Realtime != nil {
		if feed, _, _ := h.Realtime.Snapshot(); feed != nil {
			resp.LatestGTFSRealtimeEpoch = int64(feed.GetHeader().GetTimestamp())
			resp.LatestGTFSRealtime = utils.Iso8601FromUnixSeconds(resp.LatestGTFSRealtimeEpoch)
		}
	}
	switch {
	case st.Err != nil:
		resp.Status = "degraded"
		resp.Error = st.Err.Error()
	case st.Loading:
		resp.Status = "loading"
	}
	_ = json.NewEncoder(w).Encode(resp)
}
