package domain

import (
	"time"
)

// SourceKind identifies which provider a calendar source speaks to.
// The set is closed: every kind has exactly one fetcher implementation,
// selected through an exhaustive switch in the provider factory.
type SourceKind string

const (
	SourceKindGoogle  SourceKind = "google"  // primary account, read/write
	SourceKindOutlook SourceKind = "outlook" // enterprise mail calendar, read-only
	SourceKindWebhook SourceKind = "webhook" // arbitrary JSON endpoint
	SourceKindICal    SourceKind = "ical"    // ICS feed URL
	SourceKindApple   SourceKind = "apple"   // placeholder, no real integration yet
	SourceKindOther   SourceKind = "other"   // placeholder
)

// IsPlaceholder reports whether the kind has no real integration behind it.
func (k SourceKind) IsPlaceholder() bool {
	return k == SourceKindApple || k == SourceKindOther
}

// CalendarSource is one configured calendar origin. Sources are created and
// edited by user settings management; the aggregation engine reads them only.
type CalendarSource struct {
	ID            string     `json:"id"`
	Kind          SourceKind `json:"kind"`
	ConnectionRef string     `json:"connection_ref"` // calendar id, URL, or account marker
	Enabled       bool       `json:"enabled"`
	Tags          []string   `json:"tags,omitempty"`
	Name          string     `json:"name"`
}

// HasTag reports whether the source carries the given tag.
func (s *CalendarSource) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EventClass is the work/personal classification derived from source tags.
type EventClass string

const (
	EventClassWork     EventClass = "work"
	EventClassPersonal EventClass = "personal"
)

// EventTime is either an all-day calendar date or a zoned instant, never
// both and never neither. The shape mirrors the provider wire format
// (dateTime vs date) so all-day events survive normalization losslessly.
type EventTime struct {
	DateTime *time.Time `json:"date_time,omitempty"`
	Date     string     `json:"date,omitempty"` // YYYY-MM-DD
}

// NewInstant returns an EventTime holding a zoned instant.
func NewInstant(t time.Time) EventTime {
	return EventTime{DateTime: &t}
}

// NewAllDay returns an EventTime holding an all-day date.
func NewAllDay(date string) EventTime {
	return EventTime{Date: date}
}

// IsAllDay reports whether the value is a date-only all-day marker.
func (t EventTime) IsAllDay() bool {
	return t.DateTime == nil && t.Date != ""
}

// IsZero reports whether neither representation is set.
func (t EventTime) IsZero() bool {
	return t.DateTime == nil && t.Date == ""
}

// Instant resolves the value to a concrete instant. All-day dates resolve
// to the start of the day in loc.
func (t EventTime) Instant(loc *time.Location) (time.Time, bool) {
	if t.DateTime != nil {
		return *t.DateTime, true
	}
	if t.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", t.Date, loc)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}

// EndOfDayInstant resolves the value to an instant suitable for "has this
// ended" checks: all-day dates resolve to the last millisecond of the day.
func (t EventTime) EndOfDayInstant(loc *time.Location) (time.Time, bool) {
	if t.DateTime != nil {
		return *t.DateTime, true
	}
	if t.Date != "" {
		d, err := time.ParseInLocation("2006-01-02", t.Date, loc)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), loc), true
	}
	return time.Time{}, false
}

// CalendarEvent is the canonical event shape all downstream logic operates
// on, regardless of originating provider.
type CalendarEvent struct {
	ID           string     `json:"id"`
	CalendarID   string     `json:"calendar_id"`
	Title        string     `json:"title"`
	Start        EventTime  `json:"start"`
	End          *EventTime `json:"end,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Class        EventClass `json:"class"`
	CalendarName string     `json:"calendar_name"`
	Tags         []string   `json:"tags,omitempty"`
	Kind         SourceKind `json:"kind"`
}

// ViewToken selects the time-window semantics of an aggregation request.
type ViewToken string

const (
	ViewToday    ViewToken = "today"
	ViewTomorrow ViewToken = "tomorrow"
	ViewWeek     ViewToken = "week"
	ViewMonth    ViewToken = "month"
	ViewCustom   ViewToken = "custom"
)

// ParseViewToken maps a request string onto a ViewToken, defaulting to
// ViewCustom for empty input (callers that pass explicit bounds).
func ParseViewToken(s string) (ViewToken, bool) {
	switch ViewToken(s) {
	case ViewToday, ViewTomorrow, ViewWeek, ViewMonth, ViewCustom:
		return ViewToken(s), true
	case "":
		return ViewCustom, true
	default:
		return "", false
	}
}

// ViewWindow is the concrete instant range implied by a view token,
// computed fresh per aggregation request and never persisted.
type ViewWindow struct {
	View     ViewToken      `json:"view"`
	Start    time.Time      `json:"start"`
	End      time.Time      `json:"end"`
	Location *time.Location `json:"-"`
}

// Loc returns the window's timezone, defaulting to UTC.
func (w ViewWindow) Loc() *time.Location {
	if w.Location != nil {
		return w.Location
	}
	return time.UTC
}

// CustomRange is a caller-supplied explicit window for the custom view.
type CustomRange struct {
	Start time.Time
	End   time.Time
}
