package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
)

const (
	DefaultPageTimeout = 10 * time.Second

	// DefaultUserAgent is a desktop browser; Telegram serves reduced pages to bots.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
)

// Fetcher downloads Telegram pages. It keeps no per-request state; the choice
// between page forms belongs to the caller.
type Fetcher struct {
	transport      http.RoundTripper
	userAgent      string
	allowedDomains []string
	limiter        *rate.Limiter
}

type FetcherOption func(*Fetcher)

// WithTransport replaces the SSRF-safe default transport.
func WithTransport(rt http.RoundTripper) FetcherOption {
	return func(f *Fetcher) { f.transport = rt }
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithAllowedDomains replaces the Telegram domain allow-list.
func WithAllowedDomains(domains ...string) FetcherOption {
	return func(f *Fetcher) { f.allowedDomains = domains }
}

// WithRateLimit bounds outbound requests per second; rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}

		if burst <= 0 {
			burst = 1
		}

		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		transport:      NewTransport(),
		userAgent:      DefaultUserAgent,
		allowedDomains: link.AllowedHosts,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch GETs pageURL and returns the body. The timeout bounds the whole
// request including redirects and cancels the transport when it fires.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, entity.NewError(entity.KindUnreachable, fmt.Errorf("waiting for outbound slot for %s: %w", pageURL, err))
		}
	}

	c := colly.NewCollector(
		colly.AllowedDomains(f.allowedDomains...),
		colly.UserAgent(f.userAgent),
		colly.StdlibContext(ctx),
	)

	c.SetRequestTimeout(timeout)
	c.WithTransport(f.transport)
	c.SetRedirectHandler(HTTPSOnly)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})

	var (
		body   []byte
		status int
	)

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(pageURL)

	switch {
	case errors.Is(err, colly.ErrForbiddenDomain):
		return nil, entity.NewError(entity.KindUntrustedHost, fmt.Errorf("could not visit %s: %w", pageURL, err))
	case err != nil && status > 0:
		return nil, &entity.Error{
			Kind:    entity.KindNotOk,
			Message: entity.MsgUnreachable,
			Status:  status,
			Err:     fmt.Errorf("could not visit %s: %w", pageURL, err),
		}
	case err != nil:
		return nil, entity.NewError(entity.KindUnreachable, fmt.Errorf("could not visit %s: %w", pageURL, err))
	}

	return body, nil
}
