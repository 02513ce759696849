package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/httputil"
	"dayview_server/pkg/logger"
)

// WebhookAdapter fetches events from an arbitrary user-supplied JSON
// endpoint. The endpoint takes no query parameters, so the window is
// applied client-side after parsing.
type WebhookAdapter struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

// NewWebhookAdapter creates a new webhook feed adapter.
func NewWebhookAdapter(log *logger.Logger) *WebhookAdapter {
	if log == nil {
		log = logger.Default()
	}
	return &WebhookAdapter{
		client:  httputil.FeedClient(),
		breaker: newProviderBreaker("webhook-feed", log),
		log:     log,
	}
}

// webhookEvent is the minimal shape a webhook payload entry must carry.
// Timestamps are ISO-8601 strings; anything unparseable drops the entry.
type webhookEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// =============================================================================
// Fetch
// =============================================================================

// FetchEvents performs one unauthenticated GET against the source URL and
// keeps only the events overlapping the window: those starting inside it
// (with no end or an end inside it too), plus those straddling its start.
func (a *WebhookAdapter) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.fetch(ctx, source, window)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*out.RawEvent), nil
}

func (a *WebhookAdapter) fetch(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow) ([]*out.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.ConnectionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	entries, err := decodeWebhookPayload(body)
	if err != nil {
		return nil, err
	}

	events := make([]*out.RawEvent, 0, len(entries))
	for _, entry := range entries {
		raw, ok := a.convertEvent(entry)
		if !ok {
			continue
		}
		if inWindow(raw, window) {
			events = append(events, raw)
		}
	}
	return events, nil
}

// decodeWebhookPayload accepts either a bare JSON array or an object with
// exactly one array-valued field.
func decodeWebhookPayload(body []byte) ([]webhookEvent, error) {
	var direct []webhookEvent
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("webhook payload is neither array nor object: %w", err)
	}

	var arrays [][]webhookEvent
	for _, value := range wrapped {
		var entries []webhookEvent
		if err := json.Unmarshal(value, &entries); err == nil {
			arrays = append(arrays, entries)
		}
	}
	if len(arrays) != 1 {
		return nil, fmt.Errorf("webhook object must carry exactly one array field, found %d", len(arrays))
	}
	return arrays[0], nil
}

func (a *WebhookAdapter) convertEvent(entry webhookEvent) (*out.RawEvent, bool) {
	start, err := parseISOInstant(entry.Start)
	if err != nil {
		return nil, false
	}

	raw := &out.RawEvent{
		ID:            entry.ID,
		Title:         entry.Title,
		Description:   entry.Description,
		StartDateTime: &start,
	}
	if entry.End != "" {
		if end, err := parseISOInstant(entry.End); err == nil {
			raw.EndDateTime = &end
		}
	}
	return raw, true
}

func parseISOInstant(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// inWindow applies the client-side window contract: the event either starts
// inside the window with its end (if any) not past the window's end, or it
// started earlier but is still running when the window opens.
func inWindow(raw *out.RawEvent, window domain.ViewWindow) bool {
	start := *raw.StartDateTime

	if !start.Before(window.Start) {
		if raw.EndDateTime == nil {
			return true
		}
		return !raw.EndDateTime.After(window.End)
	}

	return raw.EndDateTime != nil && raw.EndDateTime.After(window.Start)
}

// Ensure interface compliance
var _ out.SourceFetcher = (*WebhookAdapter)(nil)
