package provider

import (
	"context"
	"testing"

	"golang.org/x/oauth2"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
)

func newTestFactory() *Factory {
	return NewFactory(&oauth2.Config{ClientID: "test"}, nil)
}

func TestFetcherFor_AllKnownKinds(t *testing.T) {
	factory := newTestFactory()

	kinds := []domain.SourceKind{
		domain.SourceKindGoogle,
		domain.SourceKindOutlook,
		domain.SourceKindWebhook,
		domain.SourceKindICal,
		domain.SourceKindApple,
		domain.SourceKindOther,
	}

	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			fetcher, err := factory.FetcherFor(kind)
			if err != nil {
				t.Fatalf("FetcherFor(%s) error = %v", kind, err)
			}
			if fetcher == nil {
				t.Fatalf("FetcherFor(%s) returned nil fetcher", kind)
			}
		})
	}
}

func TestFetcherFor_UnknownKind(t *testing.T) {
	factory := newTestFactory()

	if _, err := factory.FetcherFor(domain.SourceKind("carrier-pigeon")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestWriterFor_OnlyPrimaryWrites(t *testing.T) {
	factory := newTestFactory()

	if _, err := factory.WriterFor(domain.SourceKindGoogle); err != nil {
		t.Fatalf("WriterFor(google) error = %v", err)
	}

	for _, kind := range []domain.SourceKind{
		domain.SourceKindOutlook,
		domain.SourceKindWebhook,
		domain.SourceKindICal,
		domain.SourceKindApple,
		domain.SourceKindOther,
	} {
		if _, err := factory.WriterFor(kind); err != out.ErrUnsupportedWrite {
			t.Errorf("WriterFor(%s) = %v, want ErrUnsupportedWrite", kind, err)
		}
	}
}

func TestPlaceholderFetch_EmitsMarker(t *testing.T) {
	factory := newTestFactory()

	fetcher, err := factory.FetcherFor(domain.SourceKindApple)
	if err != nil {
		t.Fatal(err)
	}

	window := webhookWindow()
	got, err := fetcher.FetchEvents(context.Background(), domain.CalendarSource{
		ID:   "apple-1",
		Kind: domain.SourceKindApple,
		Name: "Apple Calendar",
	}, window, out.Credentials{})
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 marker event, got %d", len(got))
	}
	if got[0].StartDate != "2025-06-10" {
		t.Errorf("marker start = %q, want window start date", got[0].StartDate)
	}
	if got[0].Title == "" || got[0].ID == "" {
		t.Errorf("marker event incomplete: %+v", got[0])
	}
}
