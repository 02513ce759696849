package calendar

import (
	"sort"
	"time"

	"dayview_server/core/domain"
)

// FilterForView applies the view-specific inclusion rules and returns the
// events in ascending start order.
//
// today/tomorrow keep only events that have not yet ended relative to now:
// an event whose end equals now exactly is still included, an all-day
// event counts as lasting until the end of its date, and an event without
// an end is treated as ongoing from its start. The remaining views compare
// against the start of the current day instead, so events earlier today
// survive but events from previous days in the range do not.
func FilterForView(events []*domain.CalendarEvent, view domain.ViewToken, window domain.ViewWindow, now time.Time) []*domain.CalendarEvent {
	loc := window.Loc()
	now = now.In(loc)

	kept := make([]*domain.CalendarEvent, 0, len(events))
	for _, event := range events {
		start, ok := event.Start.Instant(loc)
		if !ok {
			continue
		}

		switch view {
		case domain.ViewToday, domain.ViewTomorrow:
			if !hasEnded(event, now, loc) {
				kept = append(kept, event)
			}
		default:
			if !start.Before(startOfDay(now, loc)) {
				kept = append(kept, event)
			}
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		si, _ := kept[i].Start.Instant(loc)
		sj, _ := kept[j].Start.Instant(loc)
		if si.Equal(sj) {
			return kept[i].ID < kept[j].ID
		}
		return si.Before(sj)
	})

	return kept
}

// hasEnded reports whether the event is over strictly before now. An event
// without any end is ongoing from its start and never counts as ended.
func hasEnded(event *domain.CalendarEvent, now time.Time, loc *time.Location) bool {
	if event.End != nil {
		if end, ok := event.End.EndOfDayInstant(loc); ok {
			return end.Before(now)
		}
	}
	if event.Start.IsAllDay() {
		// No explicit end: an all-day event spans its whole date.
		if end, ok := event.Start.EndOfDayInstant(loc); ok {
			return end.Before(now)
		}
	}
	return false
}
