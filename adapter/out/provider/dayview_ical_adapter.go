package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/sony/gobreaker"
	"github.com/teambition/rrule-go"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/httputil"
	"dayview_server/pkg/logger"
)

// Recurring feeds can specify unbounded rules; cap the expansion so one
// pathological feed cannot flood an aggregation pass.
const maxOccurrencesPerEvent = 1000

// ICalAdapter fetches an ICS feed, parses its VEVENTs and expands
// recurrences into concrete occurrences inside the requested window.
type ICalAdapter struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// NewICalAdapter creates a new ICS feed adapter.
func NewICalAdapter(log *logger.Logger) *ICalAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &ICalAdapter{
		client:  httputil.FeedClient(),
		breaker: newProviderBreaker("ical-feed", log),
		log:     log,
	}
}

// =============================================================================
// Fetch
// =============================================================================

// FetchEvents downloads and parses the feed, then emits one raw event per
// occurrence overlapping the window. Recurring events are expanded with
// their RRULE, honoring EXDATE exclusions.
func (a *ICalAdapter) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		body, err := a.download(ctx, source.ConnectionRef)
		if err != nil {
			return nil, err
		}
		return a.parse(body, source, window)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*out.RawEvent), nil
}

func (a *ICalAdapter) download(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *ICalAdapter) parse(body []byte, source domain.CalendarSource, window domain.ViewWindow) ([]*out.RawEvent, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ICS feed: %w", err)
	}

	var events []*out.RawEvent
	for _, ve := range cal.Events() {
		occurrences, err := a.expandVEvent(ve, window)
		if err != nil {
			// One malformed VEVENT must not sink the rest of the feed.
			a.log.WithSource(source.ID).WithError(err).Warn("skipping unparseable ICS event")
			continue
		}
		events = append(events, occurrences...)
	}
	return events, nil
}

// =============================================================================
// VEVENT expansion
// =============================================================================

func (a *ICalAdapter) expandVEvent(ve *ical.VEvent, window domain.ViewWindow) ([]*out.RawEvent, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	summary := propValue(ve, ical.ComponentPropertySummary)
	description := propValue(ve, ical.ComponentPropertyDescription)

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, fmt.Errorf("event %s has no usable DTSTART: %w", uid, err)
	}
	end, _ := ve.GetEndAt()

	allDay := isAllDayStart(ve)
	rawRRule := propValue(ve, ical.ComponentPropertyRrule)

	if rawRRule == "" {
		if !overlapsWindow(start, end, window) {
			return nil, nil
		}
		return []*out.RawEvent{makeICSRaw(uid, summary, description, start, end, allDay)}, nil
	}

	rule, err := rrule.StrToRRule(rawRRule)
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid RRULE %q: %w", uid, rawRRule, err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exDates(ve) {
		set.ExDate(ex.In(start.Location()))
	}

	occTimes := set.Between(window.Start.In(start.Location()), window.End.In(start.Location()), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	duration := end.Sub(start)
	occurrences := make([]*out.RawEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		occEnd := occStart.Add(duration)
		// Repeat instances share one UID; suffix the start so the dedup
		// key stays unique per occurrence.
		instanceID := fmt.Sprintf("%s:%s", uid, occStart.UTC().Format(time.RFC3339))
		occurrences = append(occurrences, makeICSRaw(instanceID, summary, description, occStart, occEnd, allDay))
	}
	return occurrences, nil
}

func makeICSRaw(id, summary, description string, start, end time.Time, allDay bool) *out.RawEvent {
	raw := &out.RawEvent{
		ID:          id,
		Summary:     summary,
		Description: description,
	}
	if allDay {
		raw.StartDate = start.Format("2006-01-02")
		if !end.IsZero() && end.After(start) {
			// DTEND on all-day events is exclusive; surface the last
			// covered date instead.
			raw.EndDate = end.AddDate(0, 0, -1).Format("2006-01-02")
		}
		return raw
	}

	s := start
	raw.StartDateTime = &s
	if !end.IsZero() {
		e := end
		raw.EndDateTime = &e
	}
	return raw
}

// =============================================================================
// Helper Functions
// =============================================================================

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// isAllDayStart detects the all-day form: VALUE=DATE on DTSTART, or a
// value without a time component.
func isAllDayStart(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(prop.Value, "T")
}

func exDates(ve *ical.VEvent) []time.Time {
	var out []time.Time
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSTime parses the basic ICS date and date-time forms used by
// EXDATE values.
func parseICSTime(v string) (time.Time, error) {
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}

func overlapsWindow(start, end time.Time, window domain.ViewWindow) bool {
	if end.IsZero() {
		end = start
	}
	return !end.Before(window.Start) && !start.After(window.End)
}

// Ensure interface compliance
var _ out.SourceFetcher = (*ICalAdapter)(nil)
