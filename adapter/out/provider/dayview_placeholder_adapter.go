package provider

import (
	"context"
	"fmt"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

// PlaceholderAdapter stands in for provider kinds that have no real
// integration yet. It emits a single synthetic all-day marker so a demo
// or development setup can show where the integration will appear; the
// aggregator suppresses placeholder sources entirely unless the caller
// opted in.
type PlaceholderAdapter struct{}

// NewPlaceholderAdapter creates a placeholder adapter.
func NewPlaceholderAdapter() *PlaceholderAdapter {
	return &PlaceholderAdapter{}
}

// FetchEvents returns one synthetic marker event on the first day of the
// window. It never fails and never touches the network.
func (a *PlaceholderAdapter) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	name := source.Name
	if name == "" {
		name = string(source.Kind)
	}

	return []*out.RawEvent{
		{
			ID:           fmt.Sprintf("placeholder-%s-%s", source.ID, window.Start.Format("2006-01-02")),
			Title:        fmt.Sprintf("%s integration not yet available", name),
			StartDate:    window.Start.In(window.Loc()).Format("2006-01-02"),
			CalendarID:   source.ID,
			CalendarName: name,
		},
	}, nil
}

var _ out.SourceFetcher = (*PlaceholderAdapter)(nil)
