package out

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"dayview_server/core/domain"
)

// ErrUnsupportedWrite is returned when event creation targets a source kind
// that has no write integration.
var ErrUnsupportedWrite = errors.New("event creation is not supported for this source kind")

// ErrNoCredentials is returned when a provider requires stored credentials
// and none are available for the user.
var ErrNoCredentials = errors.New("no stored credentials for provider")

// RawEvent is the provider-shaped event as fetched, before normalization.
// The struct is the union of the field spellings the wire formats use;
// each fetcher fills only the fields its provider actually carries.
type RawEvent struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
	BodyPreview string `json:"bodyPreview,omitempty"`

	StartDateTime *time.Time `json:"startDateTime,omitempty"`
	StartDate     string     `json:"startDate,omitempty"`
	StartTimeZone string     `json:"startTimeZone,omitempty"`
	EndDateTime   *time.Time `json:"endDateTime,omitempty"`
	EndDate       string     `json:"endDate,omitempty"`
	EndTimeZone   string     `json:"endTimeZone,omitempty"`

	CalendarID   string `json:"calendarId,omitempty"`
	CalendarName string `json:"calendarName,omitempty"`
}

// Credentials carries the per-user secrets a fetcher may need. Token
// acquisition and refresh persistence live outside the engine; fetchers
// consume whatever the credential store hands them.
type Credentials struct {
	Token *oauth2.Token
}

// FetchOptions tunes one aggregation pass.
type FetchOptions struct {
	// IncludePlaceholders makes placeholder kinds emit their synthetic
	// marker event instead of an empty result.
	IncludePlaceholders bool

	// PerSourceTimeout bounds each source fetch independently so one slow
	// provider cannot stall the whole aggregation.
	PerSourceTimeout time.Duration
}

// SourceFetcher fetches raw events from one kind of calendar source.
// Implementations are stateless and safe for concurrent use, honor ctx
// cancellation, and return fully-paged results.
type SourceFetcher interface {
	FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds Credentials) ([]*RawEvent, error)
}

// EventWriter creates events on a writable source. Only the primary-account
// provider implements it; everything else answers ErrUnsupportedWrite.
type EventWriter interface {
	CreateEvent(ctx context.Context, source domain.CalendarSource, event *domain.CalendarEvent, creds Credentials) (*domain.CalendarEvent, error)
}

// FetcherFactory resolves a source kind to its fetcher. Unknown kinds are
// an error, never a silent empty result.
type FetcherFactory interface {
	FetcherFor(kind domain.SourceKind) (SourceFetcher, error)
	WriterFor(kind domain.SourceKind) (EventWriter, error)
}

// CredentialStore loads stored provider credentials for a user.
type CredentialStore interface {
	Token(ctx context.Context, userID string, kind domain.SourceKind) (*oauth2.Token, error)
	SaveToken(ctx context.Context, userID string, kind domain.SourceKind, token *oauth2.Token) error
}
