package domain

import "context"

// UserCalendarSettings is the stored calendar configuration for one user.
// Sources is the modern explicit list; SelectedCalendarIDs and WebhookURL
// are the legacy shape kept for accounts that predate source management.
type UserCalendarSettings struct {
	Sources             []CalendarSource `json:"sources,omitempty"`
	SelectedCalendarIDs []string         `json:"selected_calendar_ids,omitempty"`
	WebhookURL          *string          `json:"webhook_url,omitempty"`
}

// SettingsRepository loads per-user calendar settings.
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID string) (*UserCalendarSettings, error)
	SaveSettings(ctx context.Context, userID string, settings *UserCalendarSettings) error
}
