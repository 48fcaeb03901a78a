package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teemow/szymon/internal/calendar"
)

// calendarParam returns the calendar_id query parameter or the primary
// calendar.
func calendarParam(r *http.Request) string {
	if id := r.URL.Query().Get("calendar_id"); id != "" {
		return id
	}
	return calendar.DefaultCalendar
}

// calendarSurface checks that the Calendar adapter exists and writes 503
// otherwise.
func (g *Gateway) calendarSurface(w http.ResponseWriter, r *http.Request) bool {
	if g.calendar == nil {
		g.writeError(w, r, surfaceCalendar, errNotConfigured)
		return false
	}
	return true
}

func (g *Gateway) handleListCalendars(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}
	cals, err := g.calendar.ListCalendars(r.Context())
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, cals)
}

func (g *Gateway) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}

	var (
		q   = calendar.EventQuery{Query: r.URL.Query().Get("q")}
		err error
	)
	if q.TimeMin, err = queryTime(r, "time_min"); err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	if q.TimeMax, err = queryTime(r, "time_max"); err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	if q.MaxResults, err = queryInt(r, "max_results"); err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}

	events, err := g.calendar.ListEvents(r.Context(), calendarParam(r), q)
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (g *Gateway) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}
	event, err := g.calendar.GetEvent(r.Context(), calendarParam(r), mux.Vars(r)["event_id"])
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (g *Gateway) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}
	var draft calendar.EventDraft
	if err := decodeJSON(r, &draft); err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}

	calID := calendarParam(r)
	var created *calendar.Event
	err := g.audited(r, surfaceCalendar, "event.create", calID, "", func() (err error) {
		created, err = g.calendar.CreateEvent(r.Context(), calID, draft)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (g *Gateway) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}
	var patch calendar.EventPatch
	if err := decodeJSON(r, &patch); err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}

	calID, eventID := calendarParam(r), mux.Vars(r)["event_id"]
	var updated *calendar.Event
	err := g.audited(r, surfaceCalendar, "event.update", calID, eventID, func() (err error) {
		updated, err = g.calendar.UpdateEvent(r.Context(), calID, eventID, patch)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (g *Gateway) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}
	calID, eventID := calendarParam(r), mux.Vars(r)["event_id"]
	err := g.audited(r, surfaceCalendar, "event.delete", calID, eventID, func() error {
		return g.calendar.DeleteEvent(r.Context(), calID, eventID)
	})
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse)
}

// handleQuickAdd takes the text from the query string, or from a JSON body
// {"text": "..."} when the query has none.
func (g *Gateway) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	if !g.calendarSurface(w, r) {
		return
	}

	text := r.URL.Query().Get("text")
	if text == "" {
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(r, &body); err != nil {
			g.writeError(w, r, surfaceCalendar, err)
			return
		}
		text = body.Text
	}

	calID := calendarParam(r)
	var created *calendar.Event
	err := g.audited(r, surfaceCalendar, "event.quick_add", calID, "", func() (err error) {
		created, err = g.calendar.QuickAdd(r.Context(), calID, text)
		return err
	})
	if err != nil {
		g.writeError(w, r, surfaceCalendar, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}
