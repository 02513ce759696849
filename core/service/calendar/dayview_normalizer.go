package calendar

import (
	"strings"
	"time"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/snowflake"
)

// Normalizer converts provider-shaped raw events into canonical events.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize maps one raw event onto the canonical shape, or returns nil
// when the event has no resolvable start. A nil result is not an error;
// the caller drops the event and moves on.
func (n *Normalizer) Normalize(raw *out.RawEvent, source domain.CalendarSource) *domain.CalendarEvent {
	if raw == nil {
		return nil
	}

	start := resolveEventTime(raw.StartDateTime, raw.StartDate, raw.StartTimeZone)
	if start.IsZero() {
		return nil
	}

	event := &domain.CalendarEvent{
		ID:           raw.ID,
		CalendarID:   raw.CalendarID,
		Title:        resolveTitle(raw),
		Start:        start,
		Class:        classify(source),
		CalendarName: raw.CalendarName,
		Tags:         source.Tags,
		Kind:         source.Kind,
	}

	if end := resolveEventTime(raw.EndDateTime, raw.EndDate, raw.EndTimeZone); !end.IsZero() {
		event.End = &end
	}

	if desc := resolveDescription(raw); desc != "" {
		event.Description = &desc
	}

	if event.ID == "" {
		event.ID = snowflake.EventID()
	}
	if event.CalendarID == "" {
		event.CalendarID = source.ConnectionRef
	}
	if event.CalendarName == "" {
		event.CalendarName = source.Name
	}

	return event
}

// resolveTitle walks the provider title spellings in priority order.
func resolveTitle(raw *out.RawEvent) string {
	for _, candidate := range []string{raw.Title, raw.Summary, raw.Subject} {
		if title := strings.TrimSpace(candidate); title != "" {
			return title
		}
	}
	return "(untitled)"
}

func resolveDescription(raw *out.RawEvent) string {
	if raw.Description != "" {
		return raw.Description
	}
	return raw.BodyPreview
}

// resolveEventTime prefers the instant form, shifting it into the named
// provider timezone when one is given; a bare date becomes an all-day value.
func resolveEventTime(instant *time.Time, date, tzName string) domain.EventTime {
	if instant != nil {
		t := *instant
		if tzName != "" {
			if loc, err := time.LoadLocation(tzName); err == nil {
				t = t.In(loc)
			}
		}
		return domain.NewInstant(t)
	}
	if date != "" {
		return domain.NewAllDay(date)
	}
	return domain.EventTime{}
}

// classify derives the work/personal class from source tags. An explicit
// work tag wins; a personal tag or an empty tag set means personal; other
// tags fall back to personal except on enterprise mail calendars, which
// default to work.
func classify(source domain.CalendarSource) domain.EventClass {
	if source.HasTag("work") {
		return domain.EventClassWork
	}
	if source.HasTag("personal") || len(source.Tags) == 0 {
		return domain.EventClassPersonal
	}
	if source.Kind == domain.SourceKindOutlook {
		return domain.EventClassWork
	}
	return domain.EventClassPersonal
}
