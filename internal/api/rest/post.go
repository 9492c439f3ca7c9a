package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/extractor"
	"github.com/nDmitry/tgsnap/internal/link"
	"github.com/nDmitry/tgsnap/internal/ratelimit"
)

// Extractor resolves Telegram links to posts.
type Extractor interface {
	Extract(ctx context.Context, clientID, rawURL string) (*extractor.Result, error)
	Resolve(ctx context.Context, clientID, rawURL string) (*extractor.Result, error)
}

// Generator renders a post as a feed.
type Generator interface {
	Generate(post *entity.Post, postURL string, format string) ([]byte, error)
}

// PostHandler handles routes for single Telegram posts
type PostHandler struct {
	extractor Extractor
	generator Generator
	logger    *slog.Logger
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// NewPostHandler creates a new PostHandler and registers its routes on mux
func NewPostHandler(mux *http.ServeMux, e Extractor, g Generator) *PostHandler {
	h := &PostHandler{
		extractor: e,
		generator: g,
		logger:    app.Logger(),
	}

	mux.HandleFunc("POST /api/fetch-post", h.FetchPost)
	mux.HandleFunc("GET /api/fetch-post/feed", h.GetPostFeed)

	return h
}

// FetchPost returns the post the link in the request body points to, with
// images inlined.
func (h *PostHandler) FetchPost(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewPostParamsFromRequest(r)

	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.extractor.Extract(r.Context(), ratelimit.ClientID(r), params.URL)

	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-CACHE-STATUS", string(res.CacheStatus))
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(res.Post); err != nil {
		handleBadResponse(err, params.URL)
	}
}

// GetPostFeed returns the post as a one-item feed
func (h *PostHandler) GetPostFeed(w http.ResponseWriter, r *http.Request) {
	params, err := entity.NewFeedParamsFromRequest(r)

	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.extractor.Resolve(r.Context(), ratelimit.ClientID(r), params.URL)

	if err != nil {
		h.handleError(w, r, err)
		return
	}

	postURL := params.URL

	// Already validated by Resolve.
	if l, err := link.Parse(params.URL); err == nil {
		postURL = l.URL()
	}

	content, err := h.generator.Generate(res.Post, postURL, params.Format)

	if err != nil {
		h.handleError(w, r, err)
		return
	}

	contentType := "application/rss+xml"

	if params.Format == entity.FormatAtom {
		contentType = "application/atom+xml"
	}

	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-CACHE-STATUS", string(res.CacheStatus))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(content); err != nil {
		handleBadResponse(err, postURL)
	}
}

// handleError responds with the user-facing message of err
func (h *PostHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	e := entity.AsError(err)
	statusCode := e.HTTPStatus()

	if statusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request error", "error", err, "status", statusCode)
	} else {
		h.logger.InfoContext(r.Context(), "Request rejected", "error", err, "status", statusCode)
	}

	var retry *ratelimit.RetryAfterError

	if errors.As(err, &retry) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(retry.ResetAt)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)

	response := errorResponse{Error: e.Message, Reason: e.Reason()}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		handleBadResponse(err, response)
	}
}

func retryAfterSeconds(resetAt time.Time) int {
	return max(int(math.Ceil(time.Until(resetAt).Seconds())), 1)
}

func handleBadResponse(err error, resp any) {
	app.Logger().Error(
		"failed to encode a response",
		"error", err,
		"response", resp,
	)
}
