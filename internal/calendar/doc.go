// Package calendar adapts the Google Calendar API (calendar/v3) for the
// gateway.
//
// Events are listed as single instances ordered by start time. Without
// explicit bounds, ListEvents covers today (from UTC midnight) through the
// end of the seventh day after it.
//
// Updates are read-modify-write, like in package tasks. A patched start or
// end keeps the event's existing time zone unless the patch names one.
package calendar
