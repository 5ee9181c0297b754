package handlers

import (
	"net/http"
	"strings"
	"time"

	"splitflap/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	_, err := time.Parse(time.RFC3339, s)
	return time.Time{}, err
}

// @Summary      List display events
// @Description  Filter history by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' is treated as end-of-day inclusive.
// @Tags         events
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2026-08-01)
// @Param        to    query   string  false  "End of range"    example(2026-08-31)
// @Param        type  query   string  false  "Event type"  Enums(SEND,BLOCKED,FALLBACK,CIRCUIT_AUTO_OPEN,CIRCUIT_OVERRIDE,ERROR)
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  apiResponse
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/events [get]
// @Security     BearerAuth
func (h *Handler) getEvents(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		from, to  time.Time
		eventType = strings.ToUpper(strings.TrimSpace(c.Query("type")))
		err       error
	)

	if qs := c.Query("from"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			respondError(c, http.StatusBadRequest, errFromInvalid)
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			respondError(c, http.StatusBadRequest, errToInvalid)
			return
		}
		// A date-only upper bound means "through the end of that day".
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		respondError(c, http.StatusBadRequest, "'from' must be <= 'to'")
		return
	}

	events, err := h.services.EventLog.List(ctx, service.LogFilter{From: from, To: to, Type: eventType})
	if err != nil {
		h.log.Errorw("list_events_failed", "err", err)
		respondError(c, http.StatusInternalServerError, "failed to list events")
		return
	}
	respondOK(c, gin.H{"count": len(events), "events": events}, "")
}
