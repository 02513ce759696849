package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"dayview_server/core/domain"
	"dayview_server/core/port/in"
	"dayview_server/core/port/out"
	"dayview_server/core/service/settings"
	"dayview_server/pkg/apperr"
	"dayview_server/pkg/logger"
)

// ====== Service ======

// Service implements the inbound calendar port: it resolves the user's
// sources, fans fetches out, and filters the merged result for the
// requested view.
type Service struct {
	settingsRepo domain.SettingsRepository
	resolver     *settings.Resolver
	credentials  out.CredentialStore
	aggregator   *Aggregator
	fetchers     out.FetcherFactory

	// cache is optional; when nil the service is fully stateless.
	cache    out.CachePort
	cacheTTL time.Duration

	fetchTimeout time.Duration
	group        singleflight.Group
	now          func() time.Time
	log          *logger.Logger
}

var _ in.CalendarService = (*Service)(nil)

// Config carries the service's tunables.
type Config struct {
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// NewService creates the calendar service. cache may be nil to disable the
// read-through cache.
func NewService(
	settingsRepo domain.SettingsRepository,
	resolver *settings.Resolver,
	credentials out.CredentialStore,
	aggregator *Aggregator,
	fetchers out.FetcherFactory,
	cache out.CachePort,
	cfg Config,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultPerSourceTimeout
	}
	return &Service{
		settingsRepo: settingsRepo,
		resolver:     resolver,
		credentials:  credentials,
		aggregator:   aggregator,
		fetchers:     fetchers,
		cache:        cache,
		cacheTTL:     cfg.CacheTTL,
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
		log:          log,
	}
}

// ====== Read path ======

// AggregateEvents runs one full aggregation pass for the request.
func (s *Service) AggregateEvents(ctx context.Context, req in.AggregateRequest) ([]*domain.CalendarEvent, error) {
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, apperr.InvalidWindow("start and end bounds are required")
	}

	loc := resolveLocation(req.Timezone)
	now := s.now()

	view := req.View
	if view == "" {
		view = domain.ViewCustom
	}
	window := ComputeWindow(view, now, loc, &domain.CustomRange{Start: req.Start, End: req.End})

	sources := s.resolveSources(ctx, req)
	if len(sources) == 0 {
		return []*domain.CalendarEvent{}, nil
	}

	creds, err := s.collectCredentials(ctx, req.UserID, sources)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(req, window, sources)
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		if s.cache != nil {
			var cached []*domain.CalendarEvent
			if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
				return cached, nil
			}
		}

		merged := s.aggregator.Aggregate(ctx, sources, window, creds, out.FetchOptions{
			IncludePlaceholders: req.IncludePlaceholders,
			PerSourceTimeout:    s.fetchTimeout,
		})
		filtered := FilterForView(merged, view, window, now)

		if s.cache != nil && s.cacheTTL > 0 {
			if err := s.cache.SetJSON(ctx, key, filtered, s.cacheTTL); err != nil {
				s.log.WithError(err).Warn("failed to cache aggregation result")
			}
		}
		return filtered, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]*domain.CalendarEvent), nil
}

// resolveSources derives the effective source list for one request.
// Multi-source mode reads the stored source list; legacy mode synthesizes
// from calendar ids and the webhook URL, honoring request-level overrides.
func (s *Service) resolveSources(ctx context.Context, req in.AggregateRequest) []domain.CalendarSource {
	stored := s.loadSettings(ctx, req.UserID)

	if req.MultiSource {
		return s.resolver.Resolve(stored)
	}

	legacy := &domain.UserCalendarSettings{
		SelectedCalendarIDs: stored.SelectedCalendarIDs,
		WebhookURL:          stored.WebhookURL,
	}
	if len(req.CalendarIDs) > 0 {
		legacy.SelectedCalendarIDs = req.CalendarIDs
	}
	if req.WebhookURL != nil {
		legacy.WebhookURL = req.WebhookURL
	}
	return s.resolver.Resolve(legacy)
}

func (s *Service) loadSettings(ctx context.Context, userID string) *domain.UserCalendarSettings {
	if s.settingsRepo == nil {
		return &domain.UserCalendarSettings{}
	}
	stored, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil || stored == nil {
		if err != nil {
			s.log.WithError(err).Warn("failed to load calendar settings, using defaults")
		}
		return &domain.UserCalendarSettings{}
	}
	return stored
}

// collectCredentials loads tokens for the provider kinds present in the
// source list. A missing primary-account credential fails the request;
// a missing enterprise-mail credential only drops that provider, matching
// the partial-failure stance of the fetch phase.
func (s *Service) collectCredentials(ctx context.Context, userID string, sources []domain.CalendarSource) (map[domain.SourceKind]out.Credentials, error) {
	creds := make(map[domain.SourceKind]out.Credentials)
	if s.credentials == nil {
		return creds, nil
	}

	for _, kind := range []domain.SourceKind{domain.SourceKindGoogle, domain.SourceKindOutlook} {
		if !hasKind(sources, kind) {
			continue
		}
		token, err := s.credentials.Token(ctx, userID, kind)
		if err != nil || token == nil || !token.Valid() {
			if kind == domain.SourceKindGoogle {
				return nil, apperr.Unauthenticated("missing or expired calendar credential").WithError(err)
			}
			s.log.WithField("kind", string(kind)).Warn("no valid credential for provider, skipping its sources")
			continue
		}
		creds[kind] = out.Credentials{Token: token}
	}
	return creds, nil
}

func hasKind(sources []domain.CalendarSource, kind domain.SourceKind) bool {
	for _, s := range sources {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func (s *Service) cacheKey(req in.AggregateRequest, window domain.ViewWindow, sources []domain.CalendarSource) string {
	fingerprint := ""
	for _, src := range sources {
		fingerprint += src.ID + ","
	}
	// The zone participates in filtering (start-of-today is zone-local), so
	// it must participate in the key.
	return fmt.Sprintf("calendar:events:%s:%s:%s:%d:%d:%t:%s",
		req.UserID, window.View, window.Loc().String(), window.Start.Unix(), window.End.Unix(), req.IncludePlaceholders, fingerprint)
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ====== Write path ======

// CreateEvent writes one event through the target source's writer. Only
// the primary-account provider supports writes; every other kind answers
// with a permanent not-implemented error.
func (s *Service) CreateEvent(ctx context.Context, req in.CreateEventRequest) (*domain.CalendarEvent, error) {
	if req.Event == nil {
		return nil, apperr.MissingField("event")
	}
	if req.Event.Start.IsZero() {
		return nil, apperr.MissingField("start")
	}

	source := s.resolveWriteTarget(ctx, req)

	writer, err := s.fetchers.WriterFor(source.Kind)
	if err != nil {
		return nil, apperr.UnsupportedWrite(string(source.Kind))
	}

	creds, err := s.collectCredentials(ctx, req.UserID, []domain.CalendarSource{source})
	if err != nil {
		return nil, err
	}

	created, err := writer.CreateEvent(ctx, source, req.Event, creds[source.Kind])
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return created, nil
}

// resolveWriteTarget finds the requested source, falling back to a primary
// account source aimed at the requested calendar.
func (s *Service) resolveWriteTarget(ctx context.Context, req in.CreateEventRequest) domain.CalendarSource {
	if req.SourceID != "" {
		for _, src := range s.resolver.Resolve(s.loadSettings(ctx, req.UserID)) {
			if src.ID == req.SourceID {
				return src
			}
		}
	}

	calendarID := req.CalendarID
	if calendarID == "" {
		calendarID = settings.PrimaryCalendarID
	}
	return domain.CalendarSource{
		ID:            "write-target",
		Kind:          domain.SourceKindGoogle,
		ConnectionRef: calendarID,
		Enabled:       true,
		Name:          calendarID,
	}
}
