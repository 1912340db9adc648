// Application wiring for CLI commands.
//
// Information Hiding:
// - Store selection hidden
// - Provider construction hidden
// - Metrics registry ownership hidden

package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richinex/lexiread/analysis"
	"github.com/richinex/lexiread/config"
	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/internal/metrics"
	"github.com/richinex/lexiread/llm"
	"github.com/richinex/lexiread/overlay"
	"github.com/richinex/lexiread/storage"
)

// App is the fully wired analysis pipeline shared by every command.
type App struct {
	Settings     config.Settings
	Logger       logging.Logger
	Registry     *prometheus.Registry
	Cache        *storage.PhraseCache
	Orchestrator *analysis.Orchestrator
	Renderer     *overlay.Renderer
}

type appDeps struct {
	logger    logging.Logger
	store     storage.PhraseStore
	requester analysis.Requester
	creds     llm.CredentialStore
}

// AppOption overrides a collaborator, mainly for tests.
type AppOption func(*appDeps)

// WithAppLogger replaces the logger built from settings.
func WithAppLogger(logger logging.Logger) AppOption {
	return func(d *appDeps) { d.logger = logger }
}

// WithStore replaces the store selected by settings.
func WithStore(store storage.PhraseStore) AppOption {
	return func(d *appDeps) { d.store = store }
}

// WithRequester replaces the provider-backed analysis client.
func WithRequester(r analysis.Requester) AppOption {
	return func(d *appDeps) { d.requester = r }
}

// WithCredentials replaces environment credential lookup.
func WithCredentials(creds llm.CredentialStore) AppOption {
	return func(d *appDeps) { d.creds = creds }
}

// NewApp wires logger, metrics, phrase cache, analysis client, orchestrator
// and renderer from settings.
func NewApp(ctx context.Context, settings config.Settings, opts ...AppOption) (*App, error) {
	deps := appDeps{creds: config.EnvCredentials{}}
	for _, opt := range opts {
		opt(&deps)
	}

	if deps.logger == nil {
		logger, err := logging.NewLogger(logging.LogConfig{
			Level:  settings.Log.Level,
			Format: settings.Log.Format,
		})
		if err != nil {
			return nil, err
		}
		deps.logger = logger
	}
	logger := deps.logger.Named("lexiread")

	if deps.store == nil {
		store, err := OpenStore(ctx, settings.Store)
		if err != nil {
			return nil, err
		}
		deps.store = store
	}

	cache, err := storage.NewPhraseCache(ctx, deps.store)
	if err != nil {
		_ = deps.store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if deps.requester == nil {
		providerType, err := llm.ParseProviderType(settings.LLM.Provider)
		if err != nil {
			_ = cache.Close()
			return nil, err
		}
		factory := llm.NewProviderBuilder(providerType).
			Model(settings.LLM.Model).
			BaseURL(settings.LLM.BaseURL).
			MaxTokens(settings.LLM.MaxTokens).
			Temperature(float32(settings.LLM.Temperature)).
			Factory()
		deps.requester = llm.NewAnalysisClient(factory, deps.creds, settings.LLM.APIKeyEnv,
			llm.WithLogger(logger.Named("llm")),
			llm.WithMetrics(m),
		)
	}

	logger.Debug("app wired",
		logging.String("provider", settings.LLM.Provider),
		logging.String("model", settings.LLM.Model),
		logging.String("store", settings.Store.Backend),
		logging.Int("phrases", cache.Len()),
	)

	return &App{
		Settings: settings,
		Logger:   logger,
		Registry: registry,
		Cache:    cache,
		Orchestrator: analysis.New(deps.requester, cache,
			analysis.WithLogger(logger.Named("analysis")),
			analysis.WithMetrics(m),
			analysis.WithTracker(analysis.NewTracker()),
		),
		Renderer: overlay.NewRenderer(cache, overlay.WithRenderMetrics(m)),
	}, nil
}

// Close releases the phrase store.
func (a *App) Close() error {
	return a.Cache.Close()
}

// OpenStore opens the phrase store named by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (storage.PhraseStore, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return storage.OpenSqlite(cfg.Path)
	case "bolt":
		return storage.OpenBolt(cfg.Path)
	case "redis":
		return storage.OpenRedis(ctx, cfg.RedisAddr)
	case "memory":
		return storage.NewInMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
