package extractor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/cache"
	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
	"github.com/nDmitry/tgsnap/internal/observability"
	"github.com/nDmitry/tgsnap/internal/scraper"
)

const (
	formEmbed  = "embed"
	formStatic = "static"
)

// Fetcher downloads a Telegram page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string, timeout time.Duration) ([]byte, error)
}

// Limiter admits or rejects a request for a client.
type Limiter interface {
	Admit(ctx context.Context, clientID string) error
}

// Inliner replaces remote images of a post with data URIs.
type Inliner interface {
	InlinePost(ctx context.Context, post *entity.Post) *entity.Post
}

// ParseFunc extracts the linked post from a fetched page.
type ParseFunc func(page []byte, l link.Link, embed bool) (*entity.Post, error)

// Result is a resolved post along with where it came from.
type Result struct {
	Post        *entity.Post
	CacheStatus CacheStatus
}

// Service resolves Telegram links to posts.
type Service struct {
	fetcher Fetcher
	parse   ParseFunc
	limiter Limiter
	cache   cache.Cache
	inliner Inliner
	logger  *slog.Logger

	pageTimeout time.Duration
	freshTTL    time.Duration
	staleTTL    time.Duration
	now         func() time.Time

	// Bounds background refreshes; cancelled on shutdown.
	baseCtx context.Context
	group   singleflight.Group
	wg      sync.WaitGroup
}

type Option func(*Service)

func WithParser(p ParseFunc) Option {
	return func(s *Service) { s.parse = p }
}

func WithPageTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pageTimeout = d
		}
	}
}

// WithCacheTTL sets how long a cached post is served as is and how much
// longer it is served while being refreshed. A zero fresh TTL disables the
// cache.
func WithCacheTTL(fresh, stale time.Duration) Option {
	return func(s *Service) {
		s.freshTTL = max(fresh, 0)
		s.staleTTL = max(stale, 0)
	}
}

// WithBaseContext sets the context background refreshes run under.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Service) { s.baseCtx = ctx }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. A nil cache disables caching.
func New(f Fetcher, l Limiter, c cache.Cache, in Inliner, opts ...Option) *Service {
	if c == nil {
		c = cache.NopCache{}
	}

	s := &Service{
		fetcher:     f,
		parse:       scraper.Parse,
		limiter:     l,
		cache:       c,
		inliner:     in,
		logger:      app.Logger(),
		pageTimeout: scraper.DefaultPageTimeout,
		freshTTL:    DefaultFreshTTL,
		staleTTL:    DefaultStaleTTL,
		now:         time.Now,
		baseCtx:     context.Background(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Extract resolves rawURL and inlines the avatar and media of the post.
func (s *Service) Extract(ctx context.Context, clientID, rawURL string) (*Result, error) {
	res, err := s.Resolve(ctx, clientID, rawURL)

	if err != nil {
		return nil, err
	}

	if s.inliner != nil {
		res.Post = s.inliner.InlinePost(ctx, res.Post)
	}

	return res, nil
}

// Resolve validates the link, admits the client and returns the post with
// remote image URLs. Returned errors are always *entity.Error.
func (s *Service) Resolve(ctx context.Context, clientID, rawURL string) (*Result, error) {
	res, err := s.resolve(ctx, clientID, rawURL)

	if err != nil {
		return nil, s.fail(ctx, rawURL, err)
	}

	observability.Extractions.WithLabelValues("ok").Inc()

	return res, nil
}

func (s *Service) resolve(ctx context.Context, clientID, rawURL string) (*Result, error) {
	l, err := link.Parse(rawURL)

	if err != nil {
		return nil, err
	}

	if err := s.limiter.Admit(ctx, clientID); err != nil {
		return nil, err
	}

	if res, ok := s.cached(ctx, l); ok {
		return res, nil
	}

	// Shared by coalesced callers, so one caller leaving must not fail the others.
	post, err := s.load(context.WithoutCancel(ctx), l)

	if err != nil {
		return nil, err
	}

	return &Result{Post: post, CacheStatus: CacheMiss}, nil
}

// load fetches the post once per key no matter how many callers ask for it
// at the same time, and caches the result.
func (s *Service) load(ctx context.Context, l link.Link) (*entity.Post, error) {
	key := cacheKey(l)

	v, err, _ := s.group.Do(key, func() (any, error) {
		post, err := s.fetchPost(ctx, l)

		if err != nil {
			return nil, err
		}

		s.store(ctx, key, post)

		return post, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*entity.Post).Clone(), nil
}

// fetchPost tries the embed page and falls back to the static page. Errors
// declared by the page itself end the search right away.
func (s *Service) fetchPost(ctx context.Context, l link.Link) (*entity.Post, error) {
	embed, err := s.attempt(ctx, l, formEmbed)

	if err != nil {
		if entity.AsError(err).Definitive() {
			return nil, err
		}

		s.logger.DebugContext(ctx, "Embed attempt failed, trying static page", "post", l.PostID(), "error", err)
	}

	if embed != nil && embed.Author != "" {
		return embed, nil
	}

	static, staticErr := s.attempt(ctx, l, formStatic)

	if staticErr != nil && entity.AsError(staticErr).Definitive() {
		return nil, staticErr
	}

	if static != nil && static.Author != "" {
		return static, nil
	}

	for _, post := range []*entity.Post{embed, static} {
		if post != nil {
			post.Author = post.Username
			return post, nil
		}
	}

	if staticErr != nil {
		return nil, staticErr
	}

	return nil, entity.NewError(entity.KindNotFound, nil)
}

func (s *Service) attempt(ctx context.Context, l link.Link, form string) (*entity.Post, error) {
	pageURL := l.StaticURL()

	if form == formEmbed {
		pageURL = l.EmbedURL()
	}

	start := time.Now()
	page, err := s.fetcher.Fetch(ctx, pageURL, s.pageTimeout)

	outcome := "ok"

	if err != nil {
		outcome = string(entity.KindOf(err))
	}

	observability.PageFetchDuration.WithLabelValues(form, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	return s.parse(page, l, form == formEmbed)
}

// fail classifies err and records it. Unclassified errors are logged with
// their detail and reported; the caller only sees the generic message.
func (s *Service) fail(ctx context.Context, rawURL string, err error) error {
	e := entity.AsError(err)

	observability.Extractions.WithLabelValues(string(e.Kind)).Inc()

	if e.Kind == entity.KindInternal {
		s.logger.ErrorContext(ctx, "Extraction failed", "url", rawURL, "error", err)
		app.ReportError(ctx, err)
	} else {
		s.logger.InfoContext(ctx, "Extraction rejected", "url", rawURL, "kind", e.Kind, "error", err)
	}

	return e
}

// Wait blocks until background refreshes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
