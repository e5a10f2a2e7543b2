package lookup

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/markup"
	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
	"github.com/jonwraymond/wikigraph/wiki"
)

// Operation names. They double as cache key prefixes and span names.
const (
	OpPageName     = "pagename"
	OpLinks        = "links"
	OpTags         = "tags"
	OpPageInfo     = "pageinfo"
	OpPreview      = "preview"
	OpAllPages     = "allpages"
	OpAllPagesFull = "allpages_full"
	OpNamespaces   = "namespaces"
	OpTagPages     = "tagpages"
	OpSearch       = "search"
	OpRandom       = "random"
	OpGraph        = "graph"
	OpTagIndex     = "tagindex"
)

// Defaults applied by NewService.
const (
	DefaultMaxPages         = 500
	DefaultMaxColdFetches   = 50
	DefaultGraphConcurrency = 8
	DefaultPreviewLength    = 300
)

// Options tune a Service.
type Options struct {
	// WikiURL is reported to clients by Config.
	WikiURL string

	// BaseNamespace scopes RandomPage and is reported by Config.
	BaseNamespace string

	// MaxPages caps AllPages.
	MaxPages int

	// MaxColdFetches bounds the uncached tag reads of one PagesByTag call.
	MaxColdFetches int

	// GraphConcurrency bounds concurrent document reads in aggregates.
	GraphConcurrency int

	// PreviewLength is the excerpt length in runes.
	PreviewLength int
}

func (o *Options) applyDefaults() {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.MaxColdFetches <= 0 {
		o.MaxColdFetches = DefaultMaxColdFetches
	}
	if o.GraphConcurrency <= 0 {
		o.GraphConcurrency = DefaultGraphConcurrency
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = DefaultPreviewLength
	}
	o.BaseNamespace = pageid.Canonical(o.BaseNamespace)
}

// Option configures a Service.
type Option func(*Service)

// WithMiddleware runs every operation through mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Service) {
		if mw != nil {
			s.mw = mw
		}
	}
}

// WithRandom replaces the source of RandomPage's choice. intn must return
// a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// Service answers extraction queries from the cache or the document
// source.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: upstream errors are returned unchanged and never cached;
//     wiki.ErrNotFound becomes an empty result.
//   - Context: every operation honors cancellation of ctx.
type Service struct {
	src  wiki.DocumentSource
	memo *cache.Memo
	mw   *observe.Middleware
	opts Options
	intn func(n int) int
}

// NewService creates a Service over src. A nil memo disables caching.
func NewService(src wiki.DocumentSource, memo *cache.Memo, opts Options, options ...Option) *Service {
	opts.applyDefaults()
	s := &Service{
		src:  src,
		memo: memo,
		mw:   observe.NopMiddleware(),
		opts: opts,
		intn: rand.IntN,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// CacheHooks reports memo traffic to mw's cache counters and logs failed
// cache writes.
func CacheHooks(mw *observe.Middleware) cache.Hooks {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	return cache.Hooks{
		OnHit:  func(ctx context.Context, op string) { mw.RecordCache(ctx, op, true) },
		OnMiss: func(ctx context.Context, op string) { mw.RecordCache(ctx, op, false) },
		OnStoreError: func(ctx context.Context, key string, err error) {
			mw.Logger().Warn(ctx, "cache write failed", observe.F("key", key), observe.F("error", err))
		},
	}
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// Config returns the client configuration.
func (s *Service) Config() ClientConfig {
	return ClientConfig{WikiURL: s.opts.WikiURL, BaseNamespace: s.opts.BaseNamespace}
}

func meta(op, target string) observe.OpMeta {
	return observe.OpMeta{Component: "lookup", Name: op, Target: target}
}

// fetch reads id; a missing document reports found == false.
func (s *Service) fetch(ctx context.Context, id string) (text string, found bool, err error) {
	text, err = s.src.FetchRaw(ctx, id)
	if errors.Is(err, wiki.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Title returns the first heading of id, or id itself.
func (s *Service) Title(ctx context.Context, id string) (string, error) {
	id = pageid.Canonical(id)
	if err := required("page", id); err != nil {
		return "", err
	}
	return observe.Run(ctx, s.mw, meta(OpPageName, id), func(ctx context.Context) (string, error) {
		return cache.Remember(ctx, s.memo, OpPageName, []string{id}, 0, func(ctx context.Context) (string, error) {
			text, found, err := s.fetch(ctx, id)
			if err != nil || !found {
				return id, err
			}
			return markup.ExtractTitle(text, id), nil
		})
	})
}

// Links returns the canonical internal link targets of id.
func (s *Service) Links(ctx context.Context, id string) ([]string, error) {
	id = pageid.Canonical(id)
	if err := required("page", id); err != nil {
		return nil, err
	}
	return observe.Run(ctx, s.mw, meta(OpLinks, id), func(ctx context.Context) ([]string, error) {
		return cache.Remember(ctx, s.memo, OpLinks, []string{id}, 0, func(ctx context.Context) ([]string, error) {
			text, _, err := s.fetch(ctx, id)
			if err != nil {
				return nil, err
			}
			return markup.ExtractLinks(text, id), nil
		})
	})
}

// Tags returns the tags annotated on id.
func (s *Service) Tags(ctx context.Context, id string) ([]string, error) {
	id = pageid.Canonical(id)
	if err := required("page", id); err != nil {
		return nil, err
	}
	return observe.Run(ctx, s.mw, meta(OpTags, id), func(ctx context.Context) ([]string, error) {
		return s.tags(ctx, id)
	})
}

func (s *Service) tags(ctx context.Context, id string) ([]string, error) {
	return cache.Remember(ctx, s.memo, OpTags, []string{id}, 0, func(ctx context.Context) ([]string, error) {
		text, _, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		return markup.ExtractTags(text), nil
	})
}

// PageInfo returns title, namespace and tags of id.
func (s *Service) PageInfo(ctx context.Context, id string) (PageInfo, error) {
	id = pageid.Canonical(id)
	if err := required("page", id); err != nil {
		return PageInfo{}, err
	}
	return observe.Run(ctx, s.mw, meta(OpPageInfo, id), func(ctx context.Context) (PageInfo, error) {
		return cache.Remember(ctx, s.memo, OpPageInfo, []string{id}, 0, func(ctx context.Context) (PageInfo, error) {
			f, err := s.facts(ctx, id)
			if err != nil {
				return PageInfo{}, err
			}
			return PageInfo{ID: id, Title: f.title, Namespace: pageid.Namespace(id), Tags: f.tags}, nil
		})
	})
}

// Preview returns a short excerpt of id.
func (s *Service) Preview(ctx context.Context, id string) (Preview, error) {
	id = pageid.Canonical(id)
	if err := required("page", id); err != nil {
		return Preview{}, err
	}
	return observe.Run(ctx, s.mw, meta(OpPreview, id), func(ctx context.Context) (Preview, error) {
		return cache.Remember(ctx, s.memo, OpPreview, []string{id}, 0, func(ctx context.Context) (Preview, error) {
			text, found, err := s.fetch(ctx, id)
			if err != nil {
				return Preview{}, err
			}
			if !found {
				return Preview{ID: id, Title: id}, nil
			}
			return Preview{
				ID:      id,
				Title:   markup.ExtractTitle(text, id),
				Excerpt: markup.Excerpt(text, s.opts.PreviewLength),
			}, nil
		})
	})
}

// AllPages lists the documents in ns, capped at MaxPages.
func (s *Service) AllPages(ctx context.Context, ns string) ([]wiki.PageRef, error) {
	ns = pageid.Canonical(ns)
	return observe.Run(ctx, s.mw, meta(OpAllPages, ns), func(ctx context.Context) ([]wiki.PageRef, error) {
		return cache.Remember(ctx, s.memo, OpAllPages, []string{ns}, 0, func(ctx context.Context) ([]wiki.PageRef, error) {
			pages, err := s.src.ListAll(ctx, ns)
			if err != nil {
				return nil, err
			}
			if len(pages) > s.opts.MaxPages {
				pages = pages[:s.opts.MaxPages]
			}
			return nonNil(pages), nil
		})
	})
}

// allPagesFull lists the whole corpus without the page cap.
func (s *Service) allPagesFull(ctx context.Context) ([]wiki.PageRef, error) {
	return cache.Remember(ctx, s.memo, OpAllPagesFull, nil, 0, func(ctx context.Context) ([]wiki.PageRef, error) {
		pages, err := s.src.ListAll(ctx, "")
		if err != nil {
			return nil, err
		}
		return nonNil(pages), nil
	})
}

// Namespaces returns the sorted distinct namespaces starting with prefix.
func (s *Service) Namespaces(ctx context.Context, prefix string) ([]string, error) {
	prefix = pageid.Canonical(prefix)
	return observe.Run(ctx, s.mw, meta(OpNamespaces, prefix), func(ctx context.Context) ([]string, error) {
		return cache.Remember(ctx, s.memo, OpNamespaces, []string{prefix}, 0, func(ctx context.Context) ([]string, error) {
			pages, err := s.allPagesFull(ctx)
			if err != nil {
				return nil, err
			}
			seen := make(map[string]struct{})
			out := []string{}
			for _, p := range pages {
				ns := pageid.Namespace(p.ID)
				if ns == "" || !strings.HasPrefix(ns, prefix) {
					continue
				}
				if _, dup := seen[ns]; dup {
					continue
				}
				seen[ns] = struct{}{}
				out = append(out, ns)
			}
			sort.Strings(out)
			return out, nil
		})
	})
}

// RandomPage picks a document of the base namespace.
func (s *Service) RandomPage(ctx context.Context) (PageEntry, error) {
	return observe.Run(ctx, s.mw, meta(OpRandom, s.opts.BaseNamespace), func(ctx context.Context) (PageEntry, error) {
		pages, err := s.AllPages(ctx, s.opts.BaseNamespace)
		if err != nil {
			return PageEntry{}, err
		}
		if len(pages) == 0 {
			return PageEntry{}, ErrNoPages
		}
		return PageEntry{ID: pages[s.intn(len(pages))].ID}, nil
	})
}

// Search runs the source's full-text search.
func (s *Service) Search(ctx context.Context, query string) ([]wiki.SearchHit, error) {
	query = strings.TrimSpace(query)
	if err := required("q", query); err != nil {
		return nil, err
	}
	return observe.Run(ctx, s.mw, meta(OpSearch, query), func(ctx context.Context) ([]wiki.SearchHit, error) {
		return cache.Remember(ctx, s.memo, OpSearch, []string{query}, 0, func(ctx context.Context) ([]wiki.SearchHit, error) {
			hits, err := s.src.Search(ctx, query)
			if err != nil {
				return nil, err
			}
			return nonNil(hits), nil
		})
	})
}

// facts returns title, links and tags of id, reading the document at most
// once and only for the entries the cache lacks.
func (s *Service) facts(ctx context.Context, id string) (facts, error) {
	title, hasTitle := cache.Peek[string](ctx, s.memo, OpPageName, id)
	links, hasLinks := cache.Peek[[]string](ctx, s.memo, OpLinks, id)
	tags, hasTags := cache.Peek[[]string](ctx, s.memo, OpTags, id)
	if hasTitle && hasLinks && hasTags {
		return facts{id: id, title: title, links: links, tags: tags}, nil
	}

	text, found, err := s.fetch(ctx, id)
	if err != nil {
		return facts{}, err
	}
	f := facts{id: id, title: id, links: []string{}, tags: []string{}}
	if found {
		f.title = markup.ExtractTitle(text, id)
		f.links = markup.ExtractLinks(text, id)
		f.tags = markup.ExtractTags(text)
	}
	if !hasTitle {
		s.store(ctx, OpPageName, id, f.title)
	}
	if !hasLinks {
		s.store(ctx, OpLinks, id, f.links)
	}
	if !hasTags {
		s.store(ctx, OpTags, id, f.tags)
	}
	return f, nil
}

func (s *Service) store(ctx context.Context, op, id string, v any) {
	if err := cache.Store(ctx, s.memo, op, []string{id}, v, 0); err != nil {
		s.mw.Logger().Warn(ctx, "cache write failed", observe.F("op", op), observe.F("page", id), observe.F("error", err))
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
