package calendar

import (
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/szymon/internal/google"
)

// DefaultCalendar is Google's alias for the user's primary calendar.
const DefaultCalendar = "primary"

// DefaultTimeZone is used when neither the caller nor the stored event
// names one.
const DefaultTimeZone = "UTC"

const defaultMaxResults = 250

// Calendar represents an entry of the user's calendar list
type Calendar struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	Description     string `json:"description,omitempty"`
	TimeZone        string `json:"timeZone,omitempty"`
	Primary         bool   `json:"primary"`
	AccessRole      string `json:"accessRole,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// EventDateTime is either a timed instant (DateTime) or an all-day date.
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event represents a calendar event. Timestamps are passed through as
// Google returns them.
type Event struct {
	ID               string         `json:"id"`
	Summary          string         `json:"summary"`
	Description      string         `json:"description,omitempty"`
	Location         string         `json:"location,omitempty"`
	Start            *EventDateTime `json:"start,omitempty"`
	End              *EventDateTime `json:"end,omitempty"`
	Status           string         `json:"status,omitempty"`
	HTMLLink         string         `json:"htmlLink,omitempty"`
	RecurringEventID string         `json:"recurringEventId,omitempty"`
	Created          string         `json:"created,omitempty"`
	Updated          string         `json:"updated,omitempty"`
}

// EventDraft is the input for creating an event.
type EventDraft struct {
	Summary       string  `json:"summary"`
	Description   *string `json:"description,omitempty"`
	Location      *string `json:"location,omitempty"`
	StartDateTime string  `json:"start_datetime"`
	EndDateTime   string  `json:"end_datetime"`
	Timezone      string  `json:"timezone,omitempty"`
}

// Validate checks the draft before any upstream call.
func (d EventDraft) Validate() error {
	switch {
	case d.Summary == "":
		return fmt.Errorf("%w: summary is required", google.ErrInvalidInput)
	case d.StartDateTime == "":
		return fmt.Errorf("%w: start_datetime is required", google.ErrInvalidInput)
	case d.EndDateTime == "":
		return fmt.Errorf("%w: end_datetime is required", google.ErrInvalidInput)
	}
	return nil
}

// EventPatch is a partial update; nil fields are left unchanged.
type EventPatch struct {
	Summary       *string `json:"summary,omitempty"`
	Description   *string `json:"description,omitempty"`
	Location      *string `json:"location,omitempty"`
	StartDateTime *string `json:"start_datetime,omitempty"`
	EndDateTime   *string `json:"end_datetime,omitempty"`
	Timezone      *string `json:"timezone,omitempty"`
}

// EventQuery filters ListEvents. Zero times select the default window.
type EventQuery struct {
	TimeMin    time.Time
	TimeMax    time.Time
	Query      string
	MaxResults int64
}

// defaultWindow returns UTC midnight today and 23:59:59 UTC seven days
// later.
func defaultWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := time.Date(y, m, d+7, 23, 59, 59, 0, time.UTC)
	return start, end
}

// draftToEvent builds the insert body. Empty description and location are
// not sent.
func draftToEvent(d EventDraft) *calendar.Event {
	tz := d.Timezone
	if tz == "" {
		tz = DefaultTimeZone
	}

	event := &calendar.Event{
		Summary: d.Summary,
		Start:   &calendar.EventDateTime{DateTime: d.StartDateTime, TimeZone: tz},
		End:     &calendar.EventDateTime{DateTime: d.EndDateTime, TimeZone: tz},
	}
	if d.Description != nil && *d.Description != "" {
		event.Description = *d.Description
	}
	if d.Location != nil && *d.Location != "" {
		event.Location = *d.Location
	}
	return event
}

// applyPatch overlays the present fields of p onto e. A new start or end
// takes the patch's time zone, else the one already on that boundary,
// else DefaultTimeZone.
func applyPatch(e *calendar.Event, p EventPatch) {
	if p.Summary != nil {
		e.Summary = *p.Summary
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.StartDateTime != nil {
		e.Start = &calendar.EventDateTime{
			DateTime: *p.StartDateTime,
			TimeZone: patchTimeZone(p.Timezone, e.Start),
		}
	}
	if p.EndDateTime != nil {
		e.End = &calendar.EventDateTime{
			DateTime: *p.EndDateTime,
			TimeZone: patchTimeZone(p.Timezone, e.End),
		}
	}
}

func patchTimeZone(tz *string, existing *calendar.EventDateTime) string {
	if tz != nil && *tz != "" {
		return *tz
	}
	if existing != nil && existing.TimeZone != "" {
		return existing.TimeZone
	}
	return DefaultTimeZone
}

func toEventDateTime(dt *calendar.EventDateTime) *EventDateTime {
	if dt == nil {
		return nil
	}
	return &EventDateTime{
		DateTime: dt.DateTime,
		Date:     dt.Date,
		TimeZone: dt.TimeZone,
	}
}

// toEvent converts a Google Calendar event to our Event type
func toEvent(event *calendar.Event) Event {
	if event == nil {
		return Event{}
	}

	return Event{
		ID:               event.Id,
		Summary:          event.Summary,
		Description:      event.Description,
		Location:         event.Location,
		Start:            toEventDateTime(event.Start),
		End:              toEventDateTime(event.End),
		Status:           event.Status,
		HTMLLink:         event.HtmlLink,
		RecurringEventID: event.RecurringEventId,
		Created:          event.Created,
		Updated:          event.Updated,
	}
}

// toCalendar converts a Google Calendar list entry to our Calendar type
func toCalendar(entry *calendar.CalendarListEntry) Calendar {
	if entry == nil {
		return Calendar{}
	}

	return Calendar{
		ID:              entry.Id,
		Summary:         entry.Summary,
		Description:     entry.Description,
		TimeZone:        entry.TimeZone,
		Primary:         entry.Primary,
		AccessRole:      entry.AccessRole,
		BackgroundColor: entry.BackgroundColor,
	}
}
