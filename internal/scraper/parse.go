package scraper

import (
	"fmt"
	"strings"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
)

var (
	// Shown instead of the post when it can only be viewed in the app.
	protectedPageMarkers = []string{"please open telegram to view this post"}

	restrictionTerms = []string{"restricted", "unavailable", "blocked", "violat"}
	protectionTerms  = []string{"forward", "protected", "open telegram", "saving"}
)

// Parse extracts the post l points to from a fetched page. For static pages a
// nil post with a nil error means the message is not on the page. Only the
// Restricted, Protected and Malformed kinds are returned as errors for pages
// that parsed; every optional field degrades to absent instead.
func Parse(page []byte, l link.Link, embed bool) (*entity.Post, error) {
	doc, err := NewDocument(page)

	if err != nil {
		return nil, fmt.Errorf("could not build DOM for %s: %w", l.PostID(), err)
	}

	scope, ok := doc.Find(fmt.Sprintf(`[data-post="%s"]`, l.PostID()))

	if !ok && !embed {
		return nil, nil
	}

	// An embed page renders one message, so the marker may sit outside the
	// wrapper. Static pages list neighbours, only the message itself counts.
	markerScope := scope

	if embed {
		markerScope, ok = doc.Find("body")

		if !ok {
			markerScope = doc
		}
	}

	if containsAny(strings.ToLower(markerScope.Text()), protectedPageMarkers) {
		return nil, entity.NewError(entity.KindProtected, fmt.Errorf("%s: page is app-only", l.PostID()))
	}

	if scope == nil {
		scope = doc
	}

	if err := classifyError(scope, l); err != nil {
		return nil, err
	}

	post := &entity.Post{
		Author:   extractAuthor(doc),
		Username: l.Token(),
		Content:  extractContent(doc, scope),
		Avatar:   extractAvatar(doc, scope),
		Media:    []string{},
	}

	post.SetMedia(extractMedia(scope))

	if ts, ok := extractTimestamp(doc, l); ok {
		post.ISOTimestamp = &ts
	}

	if views, ok := extractViews(scope); ok {
		post.Views = &views
	}

	post.ForwardedFrom = extractForwardedFrom(scope)
	post.ReplyTo = extractReplyTo(scope)

	return post, nil
}

func classifyError(scope Node, l link.Link) error {
	errNode, ok := scope.Find(errorSel)

	if !ok {
		return nil
	}

	text := strings.TrimSpace(errNode.Text())
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, restrictionTerms):
		return entity.NewError(entity.KindRestricted, fmt.Errorf("%s: %s", l.PostID(), text))
	case containsAny(lower, protectionTerms):
		return entity.NewError(entity.KindProtected, fmt.Errorf("%s: %s", l.PostID(), text))
	}

	e := entity.NewError(entity.KindMalformed, fmt.Errorf("%s: %s", l.PostID(), text))

	if text != "" {
		e.Message = text
	}

	return e
}

func extractAuthor(doc Node) string {
	meta, ok := doc.Find(ogTitleSel)

	if !ok {
		return ""
	}

	return splitTitle(attrOrEmpty(meta, "content"))
}

// extractContent sanitizes the message text with the reply quote removed.
// Group pages often have no text element, the page description is used then.
func extractContent(doc, scope Node) string {
	if container, ok := findMessageContainer(scope.Without(replySel)); ok {
		if content := SanitizeContent(container.InnerHTML()); content != "" {
			return content
		}
	}

	if meta, ok := doc.Find(ogDescriptionSel); ok {
		return SanitizeText(attrOrEmpty(meta, "content"))
	}

	return ""
}

func extractAvatar(doc, scope Node) *string {
	for _, n := range []Node{scope, doc} {
		img, ok := n.Find(userPhotoImgSel)

		if !ok {
			continue
		}

		for _, attr := range []string{"src", "data-src"} {
			if u := absoluteURL(attrOrEmpty(img, attr)); u != "" {
				return &u
			}
		}
	}

	for _, n := range []Node{scope, doc} {
		icon, ok := n.Find(userPhotoIconSel)

		if !ok {
			continue
		}

		if u := absoluteURL(extractImageURLFromStyle(attrOrEmpty(icon, "style"))); u != "" {
			return &u
		}
	}

	return nil
}

// extractMedia prefers a video or GIF thumbnail over the photo grid.
func extractMedia(scope Node) ([]string, entity.MediaType) {
	if player, ok := scope.Find(videoPlayerSel); ok {
		thumb := ""

		if t, ok := player.Find(videoThumbSel); ok {
			thumb = absoluteURL(extractImageURLFromStyle(attrOrEmpty(t, "style")))
		}

		if thumb == "" {
			thumb = absoluteURL(extractImageURLFromStyle(attrOrEmpty(player, "style")))
		}

		if thumb != "" {
			mediaType := entity.MediaVideo

			if _, gifIcon := scope.Find(gifIconSel); gifIcon || player.HasClass(gifPlayerClass) || player.HasClass(gifPlayerShortClass) {
				mediaType = entity.MediaGIF
			}

			return []string{thumb}, mediaType
		}
	}

	var photos []string

	seen := make(map[string]bool)

	for _, wrap := range scope.FindAll(photoWrapSel) {
		u := absoluteURL(extractImageURLFromStyle(attrOrEmpty(wrap, "style")))

		if u == "" || seen[u] {
			continue
		}

		seen[u] = true
		photos = append(photos, u)
	}

	if len(photos) > 0 {
		return photos, entity.MediaPhoto
	}

	return []string{}, ""
}

// extractTimestamp searches the whole document, embed pages keep the date
// link outside the message block.
func extractTimestamp(doc Node, l link.Link) (string, bool) {
	path := "/" + l.PostID()

	for _, a := range doc.FindAll(fmt.Sprintf(`a[href*="%s"]`, path)) {
		if !hrefPointsTo(attrOrEmpty(a, "href"), path) {
			continue
		}

		t, ok := a.Find("time")

		if !ok {
			continue
		}

		if ts, ok := normalizeTimestamp(attrOrEmpty(t, "datetime")); ok {
			return ts, true
		}
	}

	return "", false
}

// hrefPointsTo reports whether href ends with path, ignoring query and
// fragment, so that /durov/32 does not match /durov/320.
func hrefPointsTo(href, path string) bool {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}

	return strings.HasSuffix(strings.TrimSuffix(href, "/"), path)
}

func extractViews(scope Node) (int64, bool) {
	n, ok := scope.Find(viewsSel)

	if !ok {
		return 0, false
	}

	return parseViews(n.Text())
}

func extractForwardedFrom(scope Node) *entity.ForwardedFrom {
	fwd, ok := scope.Find(forwardedSel)

	if !ok {
		return nil
	}

	nameNode, ok := fwd.Find(forwardedNameSel)

	if !ok {
		return nil
	}

	name := strings.TrimSpace(nameNode.Text())

	if name == "" {
		return nil
	}

	from := &entity.ForwardedFrom{Name: name}

	if href := absoluteURL(attrOrEmpty(nameNode, "href")); href != "" {
		from.URL = href
	} else if a, ok := fwd.Find("a[href]"); ok {
		from.URL = absoluteURL(attrOrEmpty(a, "href"))
	}

	return from
}

func extractReplyTo(scope Node) *entity.ReplyTo {
	reply, ok := scope.Find(replySel)

	if !ok {
		return nil
	}

	authorNode, ok := reply.Find(authorNameSel)

	if !ok {
		return nil
	}

	author := strings.TrimSpace(authorNode.Text())

	if author == "" {
		return nil
	}

	replyTo := &entity.ReplyTo{Author: author}

	if text, ok := reply.Find(replyTextSel); ok {
		replyTo.Text = strings.TrimSpace(text.Text())
	} else if text, ok := reply.Find(messageTextSel); ok {
		replyTo.Text = strings.TrimSpace(text.Text())
	}

	return replyTo
}
