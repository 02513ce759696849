package calendar

import (
	"time"

	"dayview_server/core/domain"
)

// ComputeWindow turns a view token into a concrete instant range in loc.
// Windows always span whole days: they open at midnight and close on the
// last millisecond of their final day.
//
// A missing or inverted custom range falls back to the week window rather
// than failing the request; an equal start/end pair is honored as the
// (empty) window the caller asked for.
func ComputeWindow(view domain.ViewToken, now time.Time, loc *time.Location, custom *domain.CustomRange) domain.ViewWindow {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch view {
	case domain.ViewToday:
		return dayWindow(view, now, loc)
	case domain.ViewTomorrow:
		return dayWindow(view, now.AddDate(0, 0, 1), loc)
	case domain.ViewWeek:
		return weekWindow(now, loc)
	case domain.ViewMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		lastDay := start.AddDate(0, 1, -1)
		return domain.ViewWindow{
			View:     domain.ViewMonth,
			Start:    start,
			End:      endOfDay(lastDay, loc),
			Location: loc,
		}
	case domain.ViewCustom:
		if custom == nil || custom.Start.IsZero() || custom.End.IsZero() || custom.Start.After(custom.End) {
			return weekWindow(now, loc)
		}
		return domain.ViewWindow{
			View:     domain.ViewCustom,
			Start:    custom.Start.In(loc),
			End:      custom.End.In(loc),
			Location: loc,
		}
	default:
		return weekWindow(now, loc)
	}
}

// weekWindow spans the ISO week containing now: Monday through Sunday.
func weekWindow(now time.Time, loc *time.Location) domain.ViewWindow {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday is day 7 of the ISO week
	}
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
	sunday := monday.AddDate(0, 0, 6)
	return domain.ViewWindow{
		View:     domain.ViewWeek,
		Start:    monday,
		End:      endOfDay(sunday, loc),
		Location: loc,
	}
}

func dayWindow(view domain.ViewToken, day time.Time, loc *time.Location) domain.ViewWindow {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return domain.ViewWindow{
		View:     view,
		Start:    start,
		End:      endOfDay(day, loc),
		Location: loc,
	}
}

func endOfDay(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}

// startOfDay returns midnight of the day containing t in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
