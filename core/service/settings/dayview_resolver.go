// Package settings resolves stored user configuration into the effective
// list of calendar sources an aggregation pass will consult.
package settings

import (
	"fmt"
	"net/url"

	"dayview_server/core/domain"
)

// PrimaryCalendarID marks the provider-default calendar of the primary
// account when no explicit selection exists.
const PrimaryCalendarID = "primary"

// Resolver derives effective sources from stored settings. It is pure:
// no I/O, no clock, same input same output.
type Resolver struct{}

// NewResolver creates a settings resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the enabled sources the aggregator should fetch from.
//
// A non-empty modern source list wins outright: disabled entries are
// removed and nothing else is synthesized, even when legacy fields are
// also present. Otherwise the legacy shape is translated: one primary
// account source per selected calendar id (or the provider-default
// calendar when the selection is empty), plus one work-tagged webhook
// source when a well-formed webhook URL is configured.
func (r *Resolver) Resolve(settings *domain.UserCalendarSettings) []domain.CalendarSource {
	if settings == nil {
		settings = &domain.UserCalendarSettings{}
	}

	if len(settings.Sources) > 0 {
		return enabledOnly(settings.Sources)
	}

	return r.synthesizeLegacy(settings)
}

func enabledOnly(sources []domain.CalendarSource) []domain.CalendarSource {
	result := make([]domain.CalendarSource, 0, len(sources))
	for _, s := range sources {
		if s.Enabled {
			result = append(result, s)
		}
	}
	return result
}

func (r *Resolver) synthesizeLegacy(settings *domain.UserCalendarSettings) []domain.CalendarSource {
	var result []domain.CalendarSource

	calendarIDs := settings.SelectedCalendarIDs
	if len(calendarIDs) == 0 {
		calendarIDs = []string{PrimaryCalendarID}
	}
	for i, calID := range calendarIDs {
		result = append(result, domain.CalendarSource{
			ID:            fmt.Sprintf("legacy-google-%d", i),
			Kind:          domain.SourceKindGoogle,
			ConnectionRef: calID,
			Enabled:       true,
			Name:          calID,
		})
	}

	if settings.WebhookURL != nil && validWebhookURL(*settings.WebhookURL) {
		result = append(result, domain.CalendarSource{
			ID:            "legacy-webhook",
			Kind:          domain.SourceKindWebhook,
			ConnectionRef: *settings.WebhookURL,
			Enabled:       true,
			Tags:          []string{"work"},
			Name:          "webhook",
		})
	}

	return result
}

// validWebhookURL accepts only absolute http/https URLs. Anything else is
// dropped without error so one stale setting cannot break reads.
func validWebhookURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
