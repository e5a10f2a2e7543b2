package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonwraymond/wikigraph/auth"
	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/config"
	"github.com/jonwraymond/wikigraph/health"
	"github.com/jonwraymond/wikigraph/lookup"
	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/resilience"
	"github.com/jonwraymond/wikigraph/secret"
	"github.com/jonwraymond/wikigraph/wiki"
)

// Version is reported as the service version.
var Version = "dev"

// App is the wired process.
type App struct {
	Config   *config.Config
	Observer observe.Observer
	Logger   observe.Logger
	Cache    cache.Cache
	Memo     *cache.Memo
	Source   *wiki.Resilient
	Service  *lookup.Service
	Health   *health.Aggregator
	// Auth is nil when the query surface is open.
	Auth auth.Authenticator

	closers []func(context.Context) error
}

type options struct {
	logOutput io.Writer
	source    wiki.DocumentSource
	resolver  *secret.Resolver
	cache     cache.Cache
}

// Option customizes Build.
type Option func(*options)

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithSource replaces the configured document source.
func WithSource(src wiki.DocumentSource) Option {
	return func(o *options) { o.source = src }
}

// WithCache replaces the configured cache backend.
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithSecretResolver replaces secret.DefaultResolver.
func WithSecretResolver(r *secret.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// Build validates cfg, resolves its secrets and wires every component.
// On error, everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{resolver: secret.DefaultResolver()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(ctx, o.resolver); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.buildObserver(ctx, o.logOutput); err != nil {
		return nil, err
	}
	if err := a.buildCache(o.cache); err != nil {
		return nil, err
	}
	if err := a.buildSource(o.source); err != nil {
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(a.Observer, "lookup")
	if err != nil {
		return nil, fmt.Errorf("app: lookup middleware: %w", err)
	}
	a.Memo = cache.NewMemo(a.Cache, policy(cfg.Cache), cache.WithHooks(lookup.CacheHooks(mw)))
	a.Service = lookup.NewService(a.Source, a.Memo, lookup.Options{
		WikiURL:          cfg.Wiki.URL,
		BaseNamespace:    cfg.Wiki.BaseNamespace,
		MaxPages:         cfg.Lookup.MaxPages,
		MaxColdFetches:   cfg.Cache.MaxColdFetches,
		GraphConcurrency: cfg.Lookup.GraphConcurrency,
		PreviewLength:    cfg.Lookup.PreviewLength,
	}, lookup.WithMiddleware(mw))

	a.Health = health.NewAggregator()
	a.Health.Register(health.UpstreamChecker(a.Source))
	a.Health.Register(health.CacheChecker(a.Cache))
	a.Health.Register(health.CircuitChecker(a.Source.CircuitBreaker()))

	a.Auth, err = auth.New(auth.Config{
		Mode:        cfg.Auth.Mode,
		APIKeys:     cfg.Auth.APIKeys,
		JWTSecret:   cfg.Auth.JWTSecret,
		JWTIssuer:   cfg.Auth.JWTIssuer,
		JWTAudience: cfg.Auth.JWTAudience,
	})
	if err != nil {
		return nil, err
	}

	a.Logger.Info(ctx, "wikigraph ready",
		observe.F("wiki_url", cfg.Wiki.URL),
		observe.F("fixture", cfg.Wiki.Fixture),
		observe.F("cache_backend", cfg.Cache.Backend),
		observe.F("auth_mode", cfg.Auth.Mode),
	)
	return a, nil
}

func (a *App) buildObserver(ctx context.Context, out io.Writer) error {
	oc := a.Config.Observe
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: oc.ServiceName,
		Version:     Version,
		Tracing: observe.TracingConfig{
			Enabled:   oc.Tracing != "none",
			Exporter:  oc.Tracing,
			SamplePct: oc.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  oc.Metrics != "none",
			Exporter: oc.Metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   a.Config.LogLevel(),
			Output:  out,
		},
	})
	if err != nil {
		return fmt.Errorf("app: observer: %w", err)
	}
	a.Observer = obs
	a.Logger = obs.Logger()
	a.closers = append(a.closers, obs.Shutdown)
	return nil
}

func (a *App) buildCache(override cache.Cache) error {
	if override != nil {
		a.Cache = override
		return nil
	}
	cc := a.Config.Cache
	if cc.Backend != "badger" {
		a.Cache = cache.NewMemoryCache()
		return nil
	}
	bc, err := cache.OpenBadger(cache.BadgerConfig{
		Path:   cc.Path,
		Logger: a.Logger.With(observe.F("component", "badger")),
	})
	if err != nil {
		return fmt.Errorf("app: open cache: %w", err)
	}
	a.Cache = bc
	a.closers = append(a.closers, func(context.Context) error { return bc.Close() })
	return nil
}

func (a *App) buildSource(override wiki.DocumentSource) error {
	wc := a.Config.Wiki
	src := override
	switch {
	case src != nil:
	case wc.Fixture != "":
		ms, err := wiki.LoadFixture(wc.Fixture)
		if err != nil {
			return err
		}
		src = ms
	default:
		xs, err := wiki.NewXMLRPCSource(wiki.XMLRPCConfig{
			BaseURL:  wc.URL,
			Path:     wc.XMLRPCPath,
			Username: wc.Username,
			Password: wc.Password,
			Timeout:  wc.Timeout,
		})
		if err != nil {
			return err
		}
		src = xs
		a.closers = append(a.closers, func(context.Context) error { return xs.Close() })
	}

	rc := a.Config.Resilience
	a.Source = wiki.NewResilientFromConfig(src, resilience.Config{
		MaxAttempts:   rc.MaxAttempts,
		InitialDelay:  rc.InitialDelay,
		MaxFailures:   rc.MaxFailures,
		ResetTimeout:  rc.ResetTimeout,
		Rate:          rc.Rate,
		Burst:         rc.Burst,
		MaxConcurrent: rc.MaxConcurrent,
		Timeout:       wc.Timeout,
	})
	return nil
}

func policy(cc config.CacheConfig) cache.Policy {
	if cc.TTL <= 0 {
		return cache.NoCachePolicy()
	}
	return cache.Policy{
		DocumentTTL: cc.TTL,
		IndexTTL:    cc.IndexTTL,
		MaxTTL:      max(24*time.Hour, cc.TTL, cc.IndexTTL),
	}
}

// Close releases everything Build opened, last opened first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
