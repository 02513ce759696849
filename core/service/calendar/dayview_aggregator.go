package calendar

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/pkg/apperr"
	"dayview_server/pkg/logger"
)

const defaultPerSourceTimeout = 10 * time.Second

// Aggregator fans fetches out across all enabled sources, normalizes the
// results and collapses duplicate identifiers.
type Aggregator struct {
	fetchers   out.FetcherFactory
	normalizer *Normalizer
	log        *logger.Logger
}

// NewAggregator creates an aggregator over the given fetcher factory.
func NewAggregator(fetchers out.FetcherFactory, normalizer *Normalizer, log *logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Default()
	}
	return &Aggregator{
		fetchers:   fetchers,
		normalizer: normalizer,
		log:        log,
	}
}

// Aggregate fetches every source concurrently and merges the normalized
// results. One source failing, timing out or being unknown never fails the
// whole pass: its slot stays empty and the failure is logged. Parent ctx
// cancellation still aborts all in-flight fetches.
//
// Each task writes into its own indexed slot, so the merge (and therefore
// dedup precedence) follows the order sources were supplied in, not the
// completion order of the network calls. The returned slice is merged but
// unordered; ordering is the view filter's job.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	sources []domain.CalendarSource,
	window domain.ViewWindow,
	creds map[domain.SourceKind]out.Credentials,
	opts out.FetchOptions,
) []*domain.CalendarEvent {
	if len(sources) == 0 {
		return []*domain.CalendarEvent{}
	}

	timeout := opts.PerSourceTimeout
	if timeout <= 0 {
		timeout = defaultPerSourceTimeout
	}

	slots := make([][]*domain.CalendarEvent, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			slots[i] = a.fetchOne(fetchCtx, source, window, creds[source.Kind], opts)
			// Fetch failures are absorbed per slot; returning an error here
			// would cancel the sibling fetches.
			return nil
		})
	}
	g.Wait()

	return a.merge(slots)
}

// fetchOne runs one source's fetch and normalization, converting every
// failure into a logged empty slot.
func (a *Aggregator) fetchOne(
	ctx context.Context,
	source domain.CalendarSource,
	window domain.ViewWindow,
	creds out.Credentials,
	opts out.FetchOptions,
) []*domain.CalendarEvent {
	if source.Kind.IsPlaceholder() && !opts.IncludePlaceholders {
		return nil
	}

	fetcher, err := a.fetchers.FetcherFor(source.Kind)
	if err != nil {
		a.log.WithSource(source.ID).WithError(err).Warn("no fetcher for source kind %s", source.Kind)
		return nil
	}

	raws, err := fetcher.FetchEvents(ctx, source, window, creds)
	if err != nil {
		fetchErr := apperr.ProviderFetchFailed(source.ID, err)
		a.log.WithSource(source.ID).WithError(fetchErr).Warn("source fetch failed, continuing without it")
		return nil
	}

	events := make([]*domain.CalendarEvent, 0, len(raws))
	for _, raw := range raws {
		if event := a.normalizer.Normalize(raw, source); event != nil {
			events = append(events, event)
		}
	}
	return events
}

// merge concatenates the per-source slots in input order, keeping the
// first occurrence of every event id.
func (a *Aggregator) merge(slots [][]*domain.CalendarEvent) []*domain.CalendarEvent {
	total := 0
	for _, slot := range slots {
		total += len(slot)
	}

	seen := make(map[string]struct{}, total)
	merged := make([]*domain.CalendarEvent, 0, total)
	for _, slot := range slots {
		for _, event := range slot {
			if _, dup := seen[event.ID]; dup {
				continue
			}
			seen[event.ID] = struct{}{}
			merged = append(merged, event)
		}
	}
	return merged
}
