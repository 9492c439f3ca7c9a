package inline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/observability"
	"github.com/nDmitry/tgsnap/internal/scraper"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxBytes    = 10 << 20
	DefaultConcurrency = 8
	defaultContentType = "image/jpeg"
)

// Inliner replaces remote image URLs with data URIs so that rendered posts do
// not depend on the Telegram CDN.
type Inliner struct {
	client      *http.Client
	timeout     time.Duration
	maxBytes    int64
	concurrency int
}

type Option func(*Inliner)

// WithClient replaces the SSRF-safe default client.
func WithClient(c *http.Client) Option {
	return func(in *Inliner) { in.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(in *Inliner) {
		if d > 0 {
			in.timeout = d
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(in *Inliner) {
		if n > 0 {
			in.maxBytes = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(in *Inliner) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

func New(opts ...Option) *Inliner {
	in := &Inliner{
		client:      scraper.NewClient(nil),
		timeout:     DefaultTimeout,
		maxBytes:    DefaultMaxBytes,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(in)
	}

	return in
}

// Inline downloads the image at rawURL and returns it as a data URI. It never
// fails loudly: any problem yields ok=false.
func (in *Inliner) Inline(ctx context.Context, rawURL string) (string, bool) {
	uri, err := in.fetch(ctx, rawURL)

	if err != nil {
		observability.Inlined.WithLabelValues("failed").Inc()
		app.Logger().DebugContext(ctx, "Could not inline image", "url", rawURL, "error", err)

		return "", false
	}

	observability.Inlined.WithLabelValues("ok").Inc()

	return uri, true
}

func (in *Inliner) fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)

	if err != nil {
		return "", fmt.Errorf("invalid image URL: %w", err)
	}

	if u.Scheme != "https" || u.Host == "" {
		return "", scraper.ErrInsecureScheme
	}

	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}

	resp, err := in.client.Do(req)

	if err != nil {
		return "", fmt.Errorf("could not fetch image: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if resp.ContentLength > in.maxBytes {
		return "", fmt.Errorf("image is %d bytes, limit is %d", resp.ContentLength, in.maxBytes)
	}

	// One byte over the limit is enough to tell an oversized body apart.
	data, err := io.ReadAll(io.LimitReader(resp.Body, in.maxBytes+1))

	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}

	if int64(len(data)) > in.maxBytes {
		return "", fmt.Errorf("image exceeds %d bytes", in.maxBytes)
	}

	return "data:" + contentType(resp.Header.Get("Content-Type")) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// contentType keeps only well-formed image and video media types, anything
// else is reported as JPEG.
func contentType(header string) string {
	mediaType, _, err := mime.ParseMediaType(header)

	if err != nil {
		return defaultContentType
	}

	if !strings.HasPrefix(mediaType, "image/") && !strings.HasPrefix(mediaType, "video/") {
		return defaultContentType
	}

	return mediaType
}

// InlinePost returns a copy of post with the avatar and every media entry
// inlined. A failed avatar becomes absent and failed media entries are
// dropped, keeping the order of the rest.
func (in *Inliner) InlinePost(ctx context.Context, post *entity.Post) *entity.Post {
	if post == nil {
		return nil
	}

	out := post.Clone()

	var (
		avatar   string
		avatarOK bool
		g        errgroup.Group
	)

	media := make([]string, len(out.Media))
	mediaOK := make([]bool, len(out.Media))

	g.SetLimit(in.concurrency)

	if out.Avatar != nil {
		src := *out.Avatar

		g.Go(func() error {
			avatar, avatarOK = in.Inline(ctx, src)
			return nil
		})
	}

	for i, src := range out.Media {
		g.Go(func() error {
			media[i], mediaOK[i] = in.Inline(ctx, src)
			return nil
		})
	}

	// Branches never return errors.
	_ = g.Wait()

	if out.Avatar != nil {
		if avatarOK {
			out.Avatar = &avatar
		} else {
			out.Avatar = nil
		}
	}

	kept := make([]string, 0, len(media))

	for i, uri := range media {
		if mediaOK[i] {
			kept = append(kept, uri)
		}
	}

	out.SetMedia(kept, out.MediaType)

	return out
}
