package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

// maxBodyBytes bounds the JSON request body of the extraction endpoint.
const maxBodyBytes = 64 << 10

// PostParams represents the request parameters of the extraction endpoint.
type PostParams struct {
	// URL is the literal link as sent by the client. It is validated later by
	// the link package, but an empty value is rejected here.
	URL string `json:"url"`
}

// NewPostParamsFromRequest decodes the JSON body {"url": "..."}.
func NewPostParamsFromRequest(r *http.Request) (*PostParams, error) {
	var params PostParams

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	if err := dec.Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Kind: KindInvalidLinkFormat, Message: MsgMissingLink, Err: fmt.Errorf("could not decode request body: %w", err)}
	}

	params.URL = strings.TrimSpace(params.URL)

	if params.URL == "" {
		return nil, &Error{Kind: KindInvalidLinkFormat, Message: MsgMissingLink}
	}

	return &params, nil
}

// FeedParams represents validated request parameters for single-post feeds.
type FeedParams struct {
	URL string

	// Format is the feed format, either "atom" or "rss"
	Format string
}

// NewFeedParamsFromRequest parses the query of the feed endpoint.
func NewFeedParamsFromRequest(r *http.Request) (*FeedParams, error) {
	qp := r.URL.Query()

	rawURL := strings.TrimSpace(qp.Get("url"))

	if rawURL == "" {
		return nil, &Error{Kind: KindInvalidLinkFormat, Message: MsgMissingLink}
	}

	format := qp.Get("format")

	if format == "" {
		format = FormatRSS
	} else if format != FormatRSS && format != FormatAtom {
		return nil, &Error{
			Kind:    KindInvalidLinkFormat,
			Message: fmt.Sprintf("format must be %s or %s", FormatRSS, FormatAtom),
		}
	}

	return &FeedParams{URL: rawURL, Format: format}, nil
}
