package scraper

import (
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const (
	messageTextSel      = ".tgme_widget_message_text"
	ownMessageTextSel   = ".tgme_widget_message_text.js-message_text"
	replySel            = ".tgme_widget_message_reply"
	photoWrapSel        = ".tgme_widget_message_photo_wrap"
	videoPlayerSel      = ".tgme_widget_message_video_player"
	videoThumbSel       = ".tgme_widget_message_video_thumb"
	gifIconSel          = ".document_icon_gif, .tgme_widget_message_document_icon.gif"
	userPhotoImgSel     = ".tgme_widget_message_user_photo img"
	userPhotoIconSel    = ".tgme_widget_message_user_photo i, .tgme_page_photo_image"
	viewsSel            = ".tgme_widget_message_views"
	forwardedSel        = ".tgme_widget_message_forwarded_from"
	forwardedNameSel    = ".tgme_widget_message_forwarded_from_name"
	authorNameSel       = ".tgme_widget_message_author_name"
	replyTextSel        = ".tgme_widget_message_metatext"
	errorSel            = ".tgme_widget_message_error"
	ogTitleSel          = `meta[property="og:title"]`
	ogDescriptionSel    = `meta[property="og:description"]`
	gifPlayerClass      = "tgme_widget_message_gif"
	gifPlayerShortClass = "gif"
)

// findMessageContainer returns the message text element of scope, preferring
// the own-text variant. Sometimes there are inner text elements nested in
// each other, in which case the deepest one is used.
func findMessageContainer(scope Node) (Node, bool) {
	container, ok := scope.Find(ownMessageTextSel)

	if !ok {
		container, ok = scope.Find(messageTextSel)
	}

	if !ok {
		return nil, false
	}

	for {
		nested, ok := container.Find(messageTextSel)

		if !ok {
			break
		}

		container = nested
	}

	return container, true
}

// splitTitle separates "Author - Channel" into the author part. Without a
// hyphen the whole title is the author.
func splitTitle(title string) string {
	title = strings.TrimSpace(html.UnescapeString(title))

	author, _, found := strings.Cut(title, "-")

	if !found {
		return title
	}

	if author = strings.TrimSpace(author); author == "" {
		return title
	}

	return author
}

// parseViews parses counters like "1.2K", "3M" or "12,345".
func parseViews(text string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '\t', '\n':
			return -1
		}

		return r
	}, text)

	multiplier := 1.0

	switch {
	case strings.HasSuffix(cleaned, "K"):
		multiplier = 1_000
		cleaned = strings.TrimSuffix(cleaned, "K")
	case strings.HasSuffix(cleaned, "M"):
		multiplier = 1_000_000
		cleaned = strings.TrimSuffix(cleaned, "M")
	}

	if multiplier == 1 {
		n, err := strconv.ParseInt(cleaned, 10, 64)

		if err != nil || n < 0 {
			return 0, false
		}

		return n, true
	}

	f, err := strconv.ParseFloat(cleaned, 64)

	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	return int64(math.Round(f * multiplier)), true
}

// extractImageURLFromStyle reads the url(...) of an inline background-image.
func extractImageURLFromStyle(style string) string {
	if style == "" {
		return ""
	}

	urlStart := strings.Index(style, "url(")

	if urlStart == -1 {
		return ""
	}

	urlStart += 4 // Skip "url("
	urlEnd := strings.Index(style[urlStart:], ")") + urlStart

	if urlEnd <= urlStart {
		return ""
	}

	u := style[urlStart:urlEnd]
	u = strings.Trim(strings.TrimSpace(u), "'\"")

	return u
}

// absoluteURL resolves protocol-relative URLs and drops anything that is not
// an absolute http(s) URL.
func absoluteURL(raw string) string {
	raw = strings.TrimSpace(html.UnescapeString(raw))

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)

	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return ""
	}

	return u.String()
}

// normalizeTimestamp returns the datetime attribute as RFC 3339.
func normalizeTimestamp(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return "", false
	}

	if _, err := time.Parse(time.RFC3339, raw); err == nil {
		return raw, true
	}

	t, err := dateparse.ParseStrict(raw)

	if err != nil {
		return "", false
	}

	return t.Format(time.RFC3339), true
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}

	return false
}
