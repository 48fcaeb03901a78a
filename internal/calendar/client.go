package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/instrumentation"
)

// Client wraps the Google Calendar service. Like the tasks client it builds
// a fresh service per call from the gated credential.
type Client struct {
	creds   google.CredentialSource
	limiter *google.RateLimiter
	metrics *instrumentation.Metrics
	now     func() time.Time
	opts    []option.ClientOption
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter throttles outbound calls.
func WithRateLimiter(l *google.RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMetrics records google_api_operations_total on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock sets the clock used for the default event window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithClientOptions appends options to every service.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) { c.opts = append(c.opts, opts...) }
}

// NewClient creates a Calendar client that authorizes through creds.
func NewClient(creds google.CredentialSource, opts ...Option) *Client {
	c := &Client{creds: creds, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) service(ctx context.Context) (*calendar.Service, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cred, err := c.creds.ValidCredentials(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithTokenSource(google.TokenSource(cred))}, c.opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

func (c *Client) call(ctx context.Context, operation string, attrs *instrumentation.SpanAttributeBuilder, fn func(context.Context, *calendar.Service) error) error {
	svc, err := c.service(ctx)
	if err != nil {
		return err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation, attrs.Build()...)
	defer span.End()

	start := time.Now()
	err = fn(ctx, svc)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, time.Since(start))
	return err
}

func calendarID(id string) string {
	if id == "" {
		return DefaultCalendar
	}
	return id
}

func eventAttrs(calID, eventID string, readOnly bool) *instrumentation.SpanAttributeBuilder {
	return instrumentation.NewSpanAttributeBuilder().
		WithContainer(calID).
		WithResource("event", eventID).
		WithReadOnly(readOnly)
}

// ListCalendars lists the calendars on the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	calendars := []Calendar{}
	attrs := instrumentation.NewSpanAttributeBuilder().WithResource("calendar", "").WithReadOnly(true)

	err := c.call(ctx, instrumentation.OperationList, attrs, func(ctx context.Context, svc *calendar.Service) error {
		err := svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
			for _, entry := range page.Items {
				calendars = append(calendars, toCalendar(entry))
			}
			return nil
		})
		if err != nil {
			return google.WrapAPIError("failed to list calendars", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return calendars, nil
}

// ListEvents lists events in a calendar, expanding recurring events into
// single instances ordered by start time. Zero bounds in q select the
// window from today's UTC midnight to the end of the seventh day after.
func (c *Client) ListEvents(ctx context.Context, calID string, q EventQuery) ([]Event, error) {
	calID = calendarID(calID)

	timeMin, timeMax := defaultWindow(c.now())
	if !q.TimeMin.IsZero() {
		timeMin = q.TimeMin
	}
	if !q.TimeMax.IsZero() {
		timeMax = q.TimeMax
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	events := []Event{}
	err := c.call(ctx, instrumentation.OperationList, eventAttrs(calID, "", true), func(ctx context.Context, svc *calendar.Service) error {
		call := svc.Events.List(calID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			MaxResults(maxResults).
			SingleEvents(true).
			OrderBy("startTime")

		if q.Query != "" {
			call = call.Q(q.Query)
		}

		result, err := call.Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to list events", err)
		}
		for _, event := range result.Items {
			events = append(events, toEvent(event))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, calID, eventID string) (*Event, error) {
	calID = calendarID(calID)
	var result Event

	err := c.call(ctx, instrumentation.OperationGet, eventAttrs(calID, eventID, true), func(ctx context.Context, svc *calendar.Service) error {
		event, err := svc.Events.Get(calID, eventID).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to get event", err)
		}
		result = toEvent(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateEvent creates a timed event. The draft's time zone applies to both
// start and end.
func (c *Client) CreateEvent(ctx context.Context, calID string, draft EventDraft) (*Event, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	calID = calendarID(calID)
	var result Event

	err := c.call(ctx, instrumentation.OperationCreate, eventAttrs(calID, "", false), func(ctx context.Context, svc *calendar.Service) error {
		created, err := svc.Events.Insert(calID, draftToEvent(draft)).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to create event", err)
		}
		result = toEvent(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateEvent fetches the event, overlays the present fields of patch and
// writes the whole event back.
//
// This is not atomic: a change made elsewhere between the read and the
// write is overwritten.
func (c *Client) UpdateEvent(ctx context.Context, calID, eventID string, patch EventPatch) (*Event, error) {
	calID = calendarID(calID)
	var result Event

	err := c.call(ctx, instrumentation.OperationUpdate, eventAttrs(calID, eventID, false), func(ctx context.Context, svc *calendar.Service) error {
		existing, err := svc.Events.Get(calID, eventID).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to get existing event", err)
		}

		applyPatch(existing, patch)

		updated, err := svc.Events.Update(calID, eventID, existing).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to update event", err)
		}
		result = toEvent(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteEvent deletes an event.
func (c *Client) DeleteEvent(ctx context.Context, calID, eventID string) error {
	calID = calendarID(calID)

	return c.call(ctx, instrumentation.OperationDelete, eventAttrs(calID, eventID, false), func(ctx context.Context, svc *calendar.Service) error {
		if err := svc.Events.Delete(calID, eventID).Context(ctx).Do(); err != nil {
			return google.WrapAPIError("failed to delete event", err)
		}
		return nil
	})
}

// QuickAdd creates an event from free text such as "Lunch tomorrow at 1pm".
// Google does the parsing.
func (c *Client) QuickAdd(ctx context.Context, calID, text string) (*Event, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", google.ErrInvalidInput)
	}
	calID = calendarID(calID)
	var result Event

	err := c.call(ctx, instrumentation.OperationQuickAdd, eventAttrs(calID, "", false), func(ctx context.Context, svc *calendar.Service) error {
		created, err := svc.Events.QuickAdd(calID, text).Context(ctx).Do()
		if err != nil {
			return google.WrapAPIError("failed to quick-add event", err)
		}
		result = toEvent(created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
