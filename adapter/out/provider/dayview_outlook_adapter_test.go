package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

func outlookCreds() out.Credentials {
	return out.Credentials{Token: &oauth2.Token{
		AccessToken: "graph-token",
		Expiry:      time.Now().Add(time.Hour),
	}}
}

func outlookWindow() domain.ViewWindow {
	return domain.ViewWindow{
		View:     domain.ViewWeek,
		Start:    time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 6, 15, 23, 59, 59, 999000000, time.UTC),
		Location: time.UTC,
	}
}

func TestOutlookFetch_PagesFully(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer graph-token" {
			t.Errorf("authorization header = %q", got)
		}
		if got := r.Header.Get("Prefer"); got != `outlook.timezone="UTC"` {
			t.Errorf("prefer header = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"value": [
				{"id": "e2", "subject": "second", "start": {"dateTime": "2025-06-11T09:00:00.0000000", "timeZone": "UTC"}, "end": {"dateTime": "2025-06-11T10:00:00.0000000", "timeZone": "UTC"}}
			]}`)
			return
		}
		fmt.Fprintf(w, `{"value": [
			{"id": "e1", "subject": "first", "bodyPreview": "agenda", "start": {"dateTime": "2025-06-10T09:00:00.0000000", "timeZone": "UTC"}, "end": {"dateTime": "2025-06-10T10:00:00.0000000", "timeZone": "UTC"}}
		], "@odata.nextLink": %q}`, server.URL+"/page?page=2")
	}))
	defer server.Close()

	adapter := NewOutlookCalendarAdapter(nil)
	adapter.baseURL = server.URL
	adapter.client = server.Client()

	got, err := adapter.FetchEvents(context.Background(), domain.CalendarSource{
		ID:   "outlook-1",
		Kind: domain.SourceKindOutlook,
	}, outlookWindow(), outlookCreds())
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 events across pages, got %d", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("page order lost: [%s %s]", got[0].ID, got[1].ID)
	}
	if got[0].Subject != "first" || got[0].BodyPreview != "agenda" {
		t.Errorf("first event fields = %+v", got[0])
	}
	wantStart := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	if got[0].StartDateTime == nil || !got[0].StartDateTime.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got[0].StartDateTime, wantStart)
	}
}

func TestOutlookFetch_AllDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value": [
			{"id": "e1", "subject": "offsite", "isAllDay": true,
			 "start": {"dateTime": "2025-06-10T00:00:00.0000000", "timeZone": "UTC"},
			 "end": {"dateTime": "2025-06-11T00:00:00.0000000", "timeZone": "UTC"}}
		]}`)
	}))
	defer server.Close()

	adapter := NewOutlookCalendarAdapter(nil)
	adapter.baseURL = server.URL
	adapter.client = server.Client()

	got, err := adapter.FetchEvents(context.Background(), domain.CalendarSource{ID: "o1", Kind: domain.SourceKindOutlook}, outlookWindow(), outlookCreds())
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].StartDate != "2025-06-10" || got[0].StartDateTime != nil {
		t.Errorf("all-day event not converted to date form: %+v", got[0])
	}
	// Graph's exclusive end (June 11 midnight) covers June 10 only.
	if got[0].EndDate != "2025-06-10" {
		t.Errorf("end date = %q, want 2025-06-10", got[0].EndDate)
	}
}

func TestOutlookFetch_MultiDayAllDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value": [
			{"id": "e1", "subject": "conference", "isAllDay": true,
			 "start": {"dateTime": "2025-06-10T00:00:00.0000000", "timeZone": "UTC"},
			 "end": {"dateTime": "2025-06-13T00:00:00.0000000", "timeZone": "UTC"}}
		]}`)
	}))
	defer server.Close()

	adapter := NewOutlookCalendarAdapter(nil)
	adapter.baseURL = server.URL
	adapter.client = server.Client()

	got, err := adapter.FetchEvents(context.Background(), domain.CalendarSource{ID: "o1", Kind: domain.SourceKindOutlook}, outlookWindow(), outlookCreds())
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].StartDate != "2025-06-10" || got[0].EndDate != "2025-06-12" {
		t.Errorf("multi-day span = %q..%q, want 2025-06-10..2025-06-12", got[0].StartDate, got[0].EndDate)
	}
}

func TestOutlookFetch_MissingToken(t *testing.T) {
	adapter := NewOutlookCalendarAdapter(nil)
	_, err := adapter.FetchEvents(context.Background(), domain.CalendarSource{ID: "o1"}, outlookWindow(), out.Credentials{})
	if err != out.ErrNoCredentials {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestOutlookFetch_UnauthorizedUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": "InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewOutlookCalendarAdapter(nil)
	adapter.baseURL = server.URL
	adapter.client = server.Client()

	_, err := adapter.FetchEvents(context.Background(), domain.CalendarSource{ID: "o1"}, outlookWindow(), outlookCreds())
	if err != out.ErrNoCredentials {
		t.Fatalf("expected ErrNoCredentials for 401 upstream, got %v", err)
	}
}

func TestCalendarViewURL_SelectsMailboxCalendar(t *testing.T) {
	adapter := NewOutlookCalendarAdapter(nil)

	defaultURL := adapter.calendarViewURL(domain.CalendarSource{}, outlookWindow())
	if want := graphBaseURL + "/me/calendarView?"; len(defaultURL) < len(want) || defaultURL[:len(want)] != want {
		t.Errorf("default calendar URL = %s", defaultURL)
	}

	specificURL := adapter.calendarViewURL(domain.CalendarSource{ConnectionRef: "work-cal"}, outlookWindow())
	if want := graphBaseURL + "/me/calendars/work-cal/calendarView?"; len(specificURL) < len(want) || specificURL[:len(want)] != want {
		t.Errorf("specific calendar URL = %s", specificURL)
	}
}
