package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/httputil"
	"dayview_server/pkg/logger"
)

// GoogleCalendarAdapter fetches from and writes to the Google Calendar API.
// It is the only adapter with write support.
type GoogleCalendarAdapter struct {
	oauthConfig *oauth2.Config
	breaker     *gobreaker.CircuitBreaker
	log         *logger.Logger
}

// NewGoogleCalendarAdapter creates a new Google Calendar adapter.
func NewGoogleCalendarAdapter(oauthConfig *oauth2.Config, log *logger.Logger) *GoogleCalendarAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &GoogleCalendarAdapter{
		oauthConfig: oauthConfig,
		breaker:     newProviderBreaker("google-calendar", log),
		log:         log,
	}
}

// getService creates a Calendar service with token. The oauth2 transport
// wraps the pooled Google client so token refreshes and API calls share
// its connection pool.
func (a *GoogleCalendarAdapter) getService(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.GoogleClient())
	client := a.oauthConfig.Client(ctx, token)
	return calendar.NewService(ctx, option.WithHTTPClient(client))
}

// =============================================================================
// Fetch
// =============================================================================

// FetchEvents lists the window's events for the source's calendar, with
// recurring events expanded to single occurrences and all pages drained.
func (a *GoogleCalendarAdapter) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	if creds.Token == nil {
		return nil, out.ErrNoCredentials
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetchAllPages(ctx, source, window, creds.Token)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*out.RawEvent), nil
}

func (a *GoogleCalendarAdapter) fetchAllPages(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, token *oauth2.Token) ([]*out.RawEvent, error) {
	svc, err := a.getService(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	calendarID := source.ConnectionRef
	if calendarID == "" {
		calendarID = "primary"
	}

	var events []*out.RawEvent
	pageToken := ""
	for {
		req := svc.Events.List(calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		resp, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for _, item := range resp.Items {
			events = append(events, a.convertEvent(item, calendarID, resp.Summary))
		}

		if resp.NextPageToken == "" {
			return events, nil
		}
		pageToken = resp.NextPageToken
	}
}

// =============================================================================
// Write
// =============================================================================

// CreateEvent inserts one event into the source's calendar and returns the
// created event in canonical shape.
func (a *GoogleCalendarAdapter) CreateEvent(ctx context.Context, source domain.CalendarSource, event *domain.CalendarEvent, creds out.Credentials) (*domain.CalendarEvent, error) {
	if creds.Token == nil {
		return nil, out.ErrNoCredentials
	}

	svc, err := a.getService(ctx, creds.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	calendarID := source.ConnectionRef
	if calendarID == "" {
		calendarID = "primary"
	}

	created, err := svc.Events.Insert(calendarID, a.toGoogleEvent(event)).
		SendUpdates("none").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return a.convertCreated(created, calendarID, event, source), nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func (a *GoogleCalendarAdapter) convertEvent(event *calendar.Event, calendarID, calendarName string) *out.RawEvent {
	raw := &out.RawEvent{
		ID:           event.Id,
		Summary:      event.Summary,
		Description:  event.Description,
		CalendarID:   calendarID,
		CalendarName: calendarName,
	}

	if event.Start != nil {
		if event.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
				raw.StartDateTime = &t
			}
			raw.StartTimeZone = event.Start.TimeZone
		} else if event.Start.Date != "" {
			raw.StartDate = event.Start.Date
		}
	}

	if event.End != nil {
		if event.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				raw.EndDateTime = &t
			}
			raw.EndTimeZone = event.End.TimeZone
		} else if event.End.Date != "" {
			raw.EndDate = lastCoveredDate(event.End.Date)
		}
	}

	return raw
}

// lastCoveredDate converts a provider's exclusive all-day end date into the
// last date the event actually covers, so a one-day event on June 10 ends
// on June 10 rather than June 11.
func lastCoveredDate(exclusiveEnd string) string {
	d, err := time.Parse("2006-01-02", exclusiveEnd)
	if err != nil {
		return exclusiveEnd
	}
	return d.AddDate(0, 0, -1).Format("2006-01-02")
}

func (a *GoogleCalendarAdapter) toGoogleEvent(event *domain.CalendarEvent) *calendar.Event {
	gcalEvent := &calendar.Event{
		Summary: event.Title,
	}
	if event.Description != nil {
		gcalEvent.Description = *event.Description
	}

	gcalEvent.Start = toEventDateTime(event.Start)
	if event.End != nil {
		gcalEvent.End = toGoogleEnd(*event.End)
	} else {
		gcalEvent.End = toGoogleEnd(event.Start)
	}

	return gcalEvent
}

// toGoogleEnd converts the canonical inclusive end back to the wire's
// exclusive form: an all-day end date advances one day.
func toGoogleEnd(t domain.EventTime) *calendar.EventDateTime {
	if t.IsAllDay() {
		if d, err := time.Parse("2006-01-02", t.Date); err == nil {
			return &calendar.EventDateTime{Date: d.AddDate(0, 0, 1).Format("2006-01-02")}
		}
		return &calendar.EventDateTime{Date: t.Date}
	}
	return toEventDateTime(t)
}

func toEventDateTime(t domain.EventTime) *calendar.EventDateTime {
	if t.IsAllDay() {
		return &calendar.EventDateTime{Date: t.Date}
	}
	if t.DateTime != nil {
		return &calendar.EventDateTime{
			DateTime: t.DateTime.Format(time.RFC3339),
			TimeZone: t.DateTime.Location().String(),
		}
	}
	return nil
}

// convertCreated maps the insert response back onto the canonical shape,
// carrying over the classification the caller asked for.
func (a *GoogleCalendarAdapter) convertCreated(created *calendar.Event, calendarID string, requested *domain.CalendarEvent, source domain.CalendarSource) *domain.CalendarEvent {
	event := &domain.CalendarEvent{
		ID:           created.Id,
		CalendarID:   calendarID,
		Title:        created.Summary,
		Class:        requested.Class,
		CalendarName: source.Name,
		Tags:         requested.Tags,
		Kind:         domain.SourceKindGoogle,
	}
	if event.Class == "" {
		event.Class = domain.EventClassPersonal
	}
	if created.Description != "" {
		desc := created.Description
		event.Description = &desc
	}

	if created.Start != nil {
		if created.Start.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, created.Start.DateTime); err == nil {
				event.Start = domain.NewInstant(t)
			}
		} else if created.Start.Date != "" {
			event.Start = domain.NewAllDay(created.Start.Date)
		}
	}
	if created.End != nil {
		var end domain.EventTime
		if created.End.DateTime != "" {
			if t, err := time.Parse(time.RFC3339, created.End.DateTime); err == nil {
				end = domain.NewInstant(t)
			}
		} else if created.End.Date != "" {
			end = domain.NewAllDay(lastCoveredDate(created.End.Date))
		}
		if !end.IsZero() {
			event.End = &end
		}
	}

	return event
}

// Ensure interface compliance
var (
	_ out.SourceFetcher = (*GoogleCalendarAdapter)(nil)
	_ out.EventWriter   = (*GoogleCalendarAdapter)(nil)
)
