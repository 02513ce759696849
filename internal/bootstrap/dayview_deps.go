package bootstrap

import (
	"context"

	"dayview_server/adapter/out/persistence"
	"dayview_server/adapter/out/provider"
	"dayview_server/config"
	"dayview_server/core/domain"
	"dayview_server/core/port/out"
	"dayview_server/core/service/calendar"
	"dayview_server/core/service/settings"
	"dayview_server/infra/database"
	"dayview_server/pkg/cache"
	"dayview_server/pkg/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client

	// Stores
	SettingsRepo    domain.SettingsRepository
	CredentialStore out.CredentialStore
	Cache           *cache.RedisCache

	// Providers
	ProviderFactory *provider.Factory

	// Services
	CalendarService *calendar.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Redis is optional: without it the engine runs stateless with no
	// response cache, and settings/credentials must arrive per request.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
		logger.Info("Redis connected")
	} else {
		logger.Warn("REDIS_URL not configured, running without cache and stored settings")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
	deps.ProviderFactory = provider.NewFactory(oauthConfig, logger.Default())

	var responseCache out.CachePort
	if deps.Redis != nil {
		deps.SettingsRepo = persistence.NewRedisSettingsAdapter(deps.Redis)
		deps.CredentialStore = persistence.NewRedisCredentialStore(deps.Redis)
		deps.Cache = cache.NewRedisCache(deps.Redis)
		responseCache = deps.Cache
	} else {
		deps.SettingsRepo = emptySettingsRepo{}
		deps.CredentialStore = emptyCredentialStore{}
	}

	normalizer := calendar.NewNormalizer()
	aggregator := calendar.NewAggregator(deps.ProviderFactory, normalizer, logger.Default())
	deps.CalendarService = calendar.NewService(
		deps.SettingsRepo,
		settings.NewResolver(),
		deps.CredentialStore,
		aggregator,
		deps.ProviderFactory,
		responseCache,
		calendar.Config{
			CacheTTL:     cfg.CacheCalendarTTL,
			FetchTimeout: cfg.FetchTimeout,
		},
		logger.Default(),
	)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// emptySettingsRepo serves the no-Redis deployment: every user resolves to
// legacy defaults driven by request parameters.
type emptySettingsRepo struct{}

func (emptySettingsRepo) GetSettings(ctx context.Context, userID string) (*domain.UserCalendarSettings, error) {
	return &domain.UserCalendarSettings{}, nil
}

func (emptySettingsRepo) SaveSettings(ctx context.Context, userID string, _ *domain.UserCalendarSettings) error {
	return nil
}

type emptyCredentialStore struct{}

func (emptyCredentialStore) Token(ctx context.Context, userID string, kind domain.SourceKind) (*oauth2.Token, error) {
	return nil, out.ErrNoCredentials
}

func (emptyCredentialStore) SaveToken(ctx context.Context, userID string, kind domain.SourceKind, token *oauth2.Token) error {
	return nil
}
