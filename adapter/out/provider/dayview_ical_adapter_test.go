package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

func icsSource(url string) domain.CalendarSource {
	return domain.CalendarSource{
		ID:            "feed-1",
		Kind:          domain.SourceKindICal,
		ConnectionRef: url,
		Enabled:       true,
	}
}

func icsWindow(start, end time.Time) domain.ViewWindow {
	return domain.ViewWindow{View: domain.ViewWeek, Start: start, End: end, Location: time.UTC}
}

func serveICS(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		w.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n")))
	}))
}

const singleEventICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:single-1
SUMMARY:Dentist
DESCRIPTION:Bring insurance card
DTSTART:20250610T090000Z
DTEND:20250610T100000Z
END:VEVENT
END:VCALENDAR
`

const allDayICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:allday-1
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250610
DTEND;VALUE=DATE:20250611
END:VEVENT
END:VCALENDAR
`

const weeklyICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Standup
DTSTART:20250602T090000Z
DTEND:20250602T091500Z
RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR
EXDATE:20250611T090000Z
END:VEVENT
END:VCALENDAR
`

func TestICalFetch_SingleEvent(t *testing.T) {
	server := serveICS(t, singleEventICS)
	defer server.Close()

	adapter := NewICalAdapter(nil)
	window := icsWindow(
		time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 23, 59, 59, 999000000, time.UTC))

	got, err := adapter.FetchEvents(context.Background(), icsSource(server.URL), window, out.Credentials{})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID != "single-1" || got[0].Summary != "Dentist" {
		t.Errorf("event = %+v", got[0])
	}
	wantStart := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	if got[0].StartDateTime == nil || !got[0].StartDateTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got[0].StartDateTime, wantStart)
	}
	if got[0].Description != "Bring insurance card" {
		t.Errorf("description = %q", got[0].Description)
	}
}

func TestICalFetch_SingleEventOutsideWindow(t *testing.T) {
	server := serveICS(t, singleEventICS)
	defer server.Close()

	adapter := NewICalAdapter(nil)
	window := icsWindow(
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 7, 23, 59, 59, 999000000, time.UTC))

	got, err := adapter.FetchEvents(context.Background(), icsSource(server.URL), window, out.Credentials{})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events outside the window, got %d", len(got))
	}
}

func TestICalFetch_AllDay(t *testing.T) {
	server := serveICS(t, allDayICS)
	defer server.Close()

	adapter := NewICalAdapter(nil)
	window := icsWindow(
		time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 23, 59, 59, 999000000, time.UTC))

	got, err := adapter.FetchEvents(context.Background(), icsSource(server.URL), window, out.Credentials{})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].StartDate != "2025-06-10" {
		t.Errorf("start date = %q, want 2025-06-10", got[0].StartDate)
	}
	if got[0].StartDateTime != nil {
		t.Error("all-day event carries an instant start")
	}
	// Exclusive DTEND collapses to the same single covered day.
	if got[0].EndDate != "2025-06-10" {
		t.Errorf("end date = %q, want 2025-06-10", got[0].EndDate)
	}
}

func TestICalFetch_RecurrenceExpansion(t *testing.T) {
	server := serveICS(t, weeklyICS)
	defer server.Close()

	adapter := NewICalAdapter(nil)
	// Week of June 9: Monday/Wednesday/Friday occurrences, with the
	// Wednesday one removed by EXDATE.
	window := icsWindow(
		time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 23, 59, 59, 999000000, time.UTC))

	got, err := adapter.FetchEvents(context.Background(), icsSource(server.URL), window, out.Credentials{})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}

	if len(got) != 2 {
		for _, e := range got {
			t.Logf("occurrence: %v", e.StartDateTime)
		}
		t.Fatalf("expected 2 occurrences (Mon, Fri), got %d", len(got))
	}

	wantDays := map[string]bool{"2025-06-09": false, "2025-06-13": false}
	ids := make(map[string]bool)
	for _, e := range got {
		if e.StartDateTime == nil {
			t.Fatal("occurrence missing instant start")
		}
		day := e.StartDateTime.UTC().Format("2006-01-02")
		if _, expected := wantDays[day]; !expected {
			t.Errorf("unexpected occurrence on %s", day)
		}
		wantDays[day] = true
		if ids[e.ID] {
			t.Errorf("duplicate occurrence id %s", e.ID)
		}
		ids[e.ID] = true
	}
	for day, seen := range wantDays {
		if !seen {
			t.Errorf("missing occurrence on %s", day)
		}
	}
}

func TestICalFetch_BadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a calendar</html>"))
	}))
	defer server.Close()

	adapter := NewICalAdapter(nil)
	window := icsWindow(
		time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 23, 59, 59, 999000000, time.UTC))

	if _, err := adapter.FetchEvents(context.Background(), icsSource(server.URL), window, out.Credentials{}); err == nil {
		t.Fatal("expected parse error for non-ICS body")
	}
}
