package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/httputil"
	"dayview_server/pkg/logger"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"

	// Graph returns naive local timestamps; pinning the Prefer header to
	// UTC keeps them interpretable without a per-event zone lookup.
	graphTimeFormat = "2006-01-02T15:04:05"
)

// OutlookCalendarAdapter fetches enterprise mail calendar events through
// the Microsoft Graph calendarView endpoint. Read-only.
type OutlookCalendarAdapter struct {
	client  *http.Client
	baseURL string
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// NewOutlookCalendarAdapter creates a new Microsoft Graph adapter.
func NewOutlookCalendarAdapter(log *logger.Logger) *OutlookCalendarAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &OutlookCalendarAdapter{
		client:  httputil.GraphClient(),
		baseURL: graphBaseURL,
		breaker: newProviderBreaker("outlook-graph", log),
		log:     log,
	}
}

// graph wire shapes

type graphDateTimeTimeZone struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	BodyPreview string                `json:"bodyPreview"`
	IsAllDay    bool                  `json:"isAllDay"`
	Start       graphDateTimeTimeZone `json:"start"`
	End         graphDateTimeTimeZone `json:"end"`
}

type graphEventPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

// =============================================================================
// Fetch
// =============================================================================

// FetchEvents pulls the calendarView for the window and drains every page
// before returning, so callers always see a complete result.
func (a *OutlookCalendarAdapter) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	if creds.Token == nil {
		return nil, out.ErrNoCredentials
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetchAllPages(ctx, source, window, creds.Token.AccessToken)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*out.RawEvent), nil
}

func (a *OutlookCalendarAdapter) fetchAllPages(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, accessToken string) ([]*out.RawEvent, error) {
	nextURL := a.calendarViewURL(source, window)

	var events []*out.RawEvent
	for nextURL != "" {
		page, err := a.fetchPage(ctx, nextURL, accessToken)
		if err != nil {
			return nil, err
		}
		for i := range page.Value {
			events = append(events, a.convertEvent(&page.Value[i], source))
		}
		nextURL = page.NextLink
	}
	return events, nil
}

func (a *OutlookCalendarAdapter) calendarViewURL(source domain.CalendarSource, window domain.ViewWindow) string {
	params := url.Values{}
	params.Set("startDateTime", window.Start.UTC().Format(time.RFC3339))
	params.Set("endDateTime", window.End.UTC().Format(time.RFC3339))
	params.Set("$orderby", "start/dateTime")
	params.Set("$top", "100")

	// A connection reference selects a specific mailbox calendar; without
	// one Graph serves the default calendar.
	if source.ConnectionRef != "" && source.ConnectionRef != "primary" {
		return fmt.Sprintf("%s/me/calendars/%s/calendarView?%s", a.baseURL, url.PathEscape(source.ConnectionRef), params.Encode())
	}
	return fmt.Sprintf("%s/me/calendarView?%s", a.baseURL, params.Encode())
}

func (a *OutlookCalendarAdapter) fetchPage(ctx context.Context, pageURL, accessToken string) (*graphEventPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, out.ErrNoCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var page graphEventPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode graph response: %w", err)
	}
	return &page, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func (a *OutlookCalendarAdapter) convertEvent(event *graphEvent, source domain.CalendarSource) *out.RawEvent {
	raw := &out.RawEvent{
		ID:          event.ID,
		Subject:     event.Subject,
		BodyPreview: event.BodyPreview,
		CalendarID:  source.ConnectionRef,
	}

	if event.IsAllDay {
		// All-day values arrive as midnight timestamps; keep the date part.
		if len(event.Start.DateTime) >= 10 {
			raw.StartDate = event.Start.DateTime[:10]
		}
		if len(event.End.DateTime) >= 10 {
			// Graph all-day ends are exclusive midnights; keep the last
			// covered date.
			raw.EndDate = lastCoveredDate(event.End.DateTime[:10])
		}
		return raw
	}

	if t, err := parseGraphTime(event.Start); err == nil {
		raw.StartDateTime = &t
		raw.StartTimeZone = event.Start.TimeZone
	}
	if t, err := parseGraphTime(event.End); err == nil {
		raw.EndDateTime = &t
		raw.EndTimeZone = event.End.TimeZone
	}

	return raw
}

// parseGraphTime reads Graph's zone-less timestamp in the zone the Prefer
// header requested.
func parseGraphTime(v graphDateTimeTimeZone) (time.Time, error) {
	loc := time.UTC
	if v.TimeZone != "" && v.TimeZone != "UTC" {
		if parsed, err := time.LoadLocation(v.TimeZone); err == nil {
			loc = parsed
		}
	}
	// Graph appends fractional seconds of varying width.
	for _, layout := range []string{graphTimeFormat + ".9999999", graphTimeFormat} {
		if t, err := time.ParseInLocation(layout, v.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable graph timestamp %q", v.DateTime)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Ensure interface compliance
var _ out.SourceFetcher = (*OutlookCalendarAdapter)(nil)
