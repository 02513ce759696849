package provider

import (
	"fmt"

	"golang.org/x/oauth2"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/logger"
)

// Factory maps every source kind onto its fetcher. The switch is
// exhaustive over the closed kind set; an unknown kind is an error so a
// new provider cannot be wired in silently half-done.
type Factory struct {
	google      *GoogleCalendarAdapter
	outlook     *OutlookCalendarAdapter
	webhook     *WebhookAdapter
	ical        *ICalAdapter
	placeholder *PlaceholderAdapter
}

// NewFactory builds all provider adapters once; they are stateless and
// shared across requests.
func NewFactory(googleOAuth *oauth2.Config, log *logger.Logger) *Factory {
	return &Factory{
		google:      NewGoogleCalendarAdapter(googleOAuth, log),
		outlook:     NewOutlookCalendarAdapter(log),
		webhook:     NewWebhookAdapter(log),
		ical:        NewICalAdapter(log),
		placeholder: NewPlaceholderAdapter(),
	}
}

// FetcherFor returns the fetcher for the given source kind.
func (f *Factory) FetcherFor(kind domain.SourceKind) (out.SourceFetcher, error) {
	switch kind {
	case domain.SourceKindGoogle:
		return f.google, nil
	case domain.SourceKindOutlook:
		return f.outlook, nil
	case domain.SourceKindWebhook:
		return f.webhook, nil
	case domain.SourceKindICal:
		return f.ical, nil
	case domain.SourceKindApple, domain.SourceKindOther:
		return f.placeholder, nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
}

// WriterFor returns the event writer for the given source kind. Only the
// primary account provider can write.
func (f *Factory) WriterFor(kind domain.SourceKind) (out.EventWriter, error) {
	if kind == domain.SourceKindGoogle {
		return f.google, nil
	}
	return nil, out.ErrUnsupportedWrite
}

var _ out.FetcherFactory = (*Factory)(nil)
