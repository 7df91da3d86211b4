package board

import (
	"strings"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

// ExtractAlerts returns the text of service alerts that inform a stop whose
// id contains stopID. Each alert contributes its header and, when
// different, its description (first translation of each). Texts are joined
// with blank lines in feed order.
func ExtractAlerts(fm *gtfsrtpb.FeedMessage, stopID string) string {
	if fm == nil || stopID == "" {
		return ""
	}
	var messages []string
	for _, e := range fm.GetEntity() {
		a := e.GetAlert()
		if a == nil || !informsStop(a, stopID) {
			continue
		}
		header := firstTranslation(a.GetHeaderText())
		description := firstTranslation(a.GetDescriptionText())
		if header != "" {
			messages = append(messages, header)
		}
		if description != "" && description != header {
			messages = append(messages, description)
		}
	}
	return strings.Join(messages, "\n\n")
}

func informsStop(a *gtfsrtpb.Alert, stopID string) bool {
	for _, ie := range a.GetInformedEntity() {
		if sid := ie.GetStopId(); sid != "" && strings.Contains(sid, stopID) {
			return true
		}
	}
	return false
}

func firstTranslation(ts *gtfsrtpb.TranslatedString) string {
	if tr := ts.GetTranslation(); len(tr) > 0 {
		return tr[0].GetText()
	}
	return ""
}
