package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

// stubFetcher returns canned raw events or an error, optionally after a
// delay so timeout and cancellation behavior can be exercised.
type stubFetcher struct {
	events []*out.RawEvent
	err    error
	delay  time.Duration
}

func (f *stubFetcher) FetchEvents(ctx context.Context, source domain.CalendarSource, window domain.ViewWindow, creds out.Credentials) ([]*out.RawEvent, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// stubFactory dispatches to one stub per source kind.
type stubFactory struct {
	fetchers map[domain.SourceKind]out.SourceFetcher
}

func (f *stubFactory) FetcherFor(kind domain.SourceKind) (out.SourceFetcher, error) {
	fetcher, ok := f.fetchers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
	return fetcher, nil
}

func (f *stubFactory) WriterFor(kind domain.SourceKind) (out.EventWriter, error) {
	return nil, out.ErrUnsupportedWrite
}

func rawAt(id string, start time.Time) *out.RawEvent {
	s := start
	return &out.RawEvent{ID: id, Title: "event " + id, StartDateTime: &s}
}

func testWindow() domain.ViewWindow {
	loc := time.UTC
	return domain.ViewWindow{
		View:     domain.ViewToday,
		Start:    time.Date(2025, 6, 10, 0, 0, 0, 0, loc),
		End:      time.Date(2025, 6, 10, 23, 59, 59, 999000000, loc),
		Location: loc,
	}
}

func TestAggregate_DedupFirstSourceWins(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	google := &stubFetcher{events: []*out.RawEvent{rawAt("dup", start), rawAt("g2", start)}}
	outlook := &stubFetcher{events: []*out.RawEvent{rawAt("dup", start), rawAt("o2", start)}}
	// The outlook stub answers instantly while google is slow; slot order
	// must still win over arrival order.
	google.delay = 50 * time.Millisecond

	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{
		domain.SourceKindGoogle:  google,
		domain.SourceKindOutlook: outlook,
	}}, NewNormalizer(), nil)

	sources := []domain.CalendarSource{
		{ID: "s-google", Kind: domain.SourceKindGoogle, Enabled: true},
		{ID: "s-outlook", Kind: domain.SourceKindOutlook, Enabled: true},
	}

	got := agg.Aggregate(context.Background(), sources, testWindow(), nil, out.FetchOptions{})

	if len(got) != 3 {
		t.Fatalf("expected 3 events after dedup, got %d", len(got))
	}
	byID := make(map[string]*domain.CalendarEvent)
	for _, e := range got {
		if _, dup := byID[e.ID]; dup {
			t.Fatalf("duplicate id %s survived dedup", e.ID)
		}
		byID[e.ID] = e
	}
	dup, ok := byID["dup"]
	if !ok {
		t.Fatal("deduped event missing entirely")
	}
	if dup.Kind != domain.SourceKindGoogle {
		t.Errorf("retained copy came from %s, want first-listed google source", dup.Kind)
	}
}

func TestAggregate_PartialFailureIsolation(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{
		domain.SourceKindGoogle:  &stubFetcher{events: []*out.RawEvent{rawAt("g1", start)}},
		domain.SourceKindOutlook: &stubFetcher{err: errors.New("503 from upstream")},
		domain.SourceKindWebhook: &stubFetcher{events: []*out.RawEvent{rawAt("w1", start)}},
	}}, NewNormalizer(), nil)

	sources := []domain.CalendarSource{
		{ID: "s1", Kind: domain.SourceKindGoogle, Enabled: true},
		{ID: "s2", Kind: domain.SourceKindOutlook, Enabled: true},
		{ID: "s3", Kind: domain.SourceKindWebhook, Enabled: true},
	}

	got := agg.Aggregate(context.Background(), sources, testWindow(), nil, out.FetchOptions{})

	if len(got) != 2 {
		t.Fatalf("expected 2 events from healthy sources, got %d", len(got))
	}
	if got[0].ID != "g1" || got[1].ID != "w1" {
		t.Errorf("expected [g1 w1], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestAggregate_PerSourceTimeout(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{
		domain.SourceKindGoogle:  &stubFetcher{events: []*out.RawEvent{rawAt("slow", start)}, delay: 500 * time.Millisecond},
		domain.SourceKindWebhook: &stubFetcher{events: []*out.RawEvent{rawAt("fast", start)}},
	}}, NewNormalizer(), nil)

	sources := []domain.CalendarSource{
		{ID: "s1", Kind: domain.SourceKindGoogle, Enabled: true},
		{ID: "s2", Kind: domain.SourceKindWebhook, Enabled: true},
	}

	began := time.Now()
	got := agg.Aggregate(context.Background(), sources, testWindow(), nil, out.FetchOptions{
		PerSourceTimeout: 30 * time.Millisecond,
	})
	elapsed := time.Since(began)

	if len(got) != 1 || got[0].ID != "fast" {
		t.Fatalf("expected only the fast source's event, got %d events", len(got))
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("aggregation waited out the slow fetch: %v", elapsed)
	}
}

func TestAggregate_Cancellation(t *testing.T) {
	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{
		domain.SourceKindGoogle: &stubFetcher{delay: 5 * time.Second},
	}}, NewNormalizer(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	began := time.Now()
	got := agg.Aggregate(ctx, []domain.CalendarSource{
		{ID: "s1", Kind: domain.SourceKindGoogle, Enabled: true},
	}, testWindow(), nil, out.FetchOptions{})

	if time.Since(began) > time.Second {
		t.Fatal("cancellation did not propagate to in-flight fetch")
	}
	if len(got) != 0 {
		t.Errorf("expected no events after cancellation, got %d", len(got))
	}
}

func TestAggregate_PlaceholdersGated(t *testing.T) {
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	apple := &stubFetcher{events: []*out.RawEvent{rawAt("apple-marker", start)}}

	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{
		domain.SourceKindApple: apple,
	}}, NewNormalizer(), nil)

	sources := []domain.CalendarSource{
		{ID: "s1", Kind: domain.SourceKindApple, Enabled: true},
	}

	if got := agg.Aggregate(context.Background(), sources, testWindow(), nil, out.FetchOptions{}); len(got) != 0 {
		t.Errorf("placeholder events leaked without opt-in: %d", len(got))
	}

	got := agg.Aggregate(context.Background(), sources, testWindow(), nil, out.FetchOptions{IncludePlaceholders: true})
	if len(got) != 1 {
		t.Errorf("expected placeholder event with opt-in, got %d", len(got))
	}
}

func TestAggregate_UnknownKindSkipped(t *testing.T) {
	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{}}, NewNormalizer(), nil)

	got := agg.Aggregate(context.Background(), []domain.CalendarSource{
		{ID: "s1", Kind: domain.SourceKind("mystery"), Enabled: true},
	}, testWindow(), nil, out.FetchOptions{})

	if len(got) != 0 {
		t.Errorf("expected empty result for unknown kind, got %d", len(got))
	}
}

func TestAggregate_EmptySources(t *testing.T) {
	agg := NewAggregator(&stubFactory{fetchers: map[domain.SourceKind]out.SourceFetcher{}}, NewNormalizer(), nil)

	got := agg.Aggregate(context.Background(), nil, testWindow(), nil, out.FetchOptions{})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
