package handlers

import (
	"net/http"
	"time"

	"twintrack/database"
)

type AnalyticsHandler struct {
	store *database.Store
	now   func() time.Time
}

func NewAnalyticsHandler(store *database.Store) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, now: time.Now}
}

var analyticsRanges = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

// Analytics returns tasks completed per day over the requested range.
func (h *AnalyticsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("range")
	if name == "" {
		name = "week"
	}
	days, ok := analyticsRanges[name]
	if !ok {
		respondError(w, r, badRequest("range must be week, month or year"))
		return
	}

	now := h.now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	counts, err := h.store.CompletionsSince(r.Context(), since, now)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, counts, "")
}
