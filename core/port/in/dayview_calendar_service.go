package in

import (
	"context"
	"time"

	"dayview_server/core/domain"
)

// AggregateRequest describes one calendar read. The explicit Start/End pair
// is always required; View refines how the effective window and filtering
// are derived from it.
type AggregateRequest struct {
	UserID string

	View  domain.ViewToken
	Start time.Time
	End   time.Time

	// Timezone is an IANA zone name; empty means UTC.
	Timezone string

	// CalendarIDs overrides the stored selection when non-empty (legacy
	// request shape).
	CalendarIDs []string

	// WebhookURL overrides the stored webhook URL when non-nil.
	WebhookURL *string

	// MultiSource enables the configured source list; when false only the
	// primary account is consulted.
	MultiSource bool

	// IncludePlaceholders surfaces placeholder sources as synthetic events.
	IncludePlaceholders bool
}

// CreateEventRequest describes one event write.
type CreateEventRequest struct {
	UserID     string
	SourceID   string
	CalendarID string
	Event      *domain.CalendarEvent
}

// CalendarService is the inbound port for the aggregation engine.
type CalendarService interface {
	// AggregateEvents fetches, normalizes, deduplicates and filters events
	// from every enabled source for the requested view window.
	AggregateEvents(ctx context.Context, req AggregateRequest) ([]*domain.CalendarEvent, error)

	// CreateEvent writes an event through the target source's writer.
	CreateEvent(ctx context.Context, req CreateEventRequest) (*domain.CalendarEvent, error)
}
