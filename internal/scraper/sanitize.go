package scraper

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tags kept in sanitized content. Everything else is unwrapped.
var allowedTags = map[string]bool{
	"a":          true,
	"b":          true,
	"i":          true,
	"strong":     true,
	"em":         true,
	"u":          true,
	"s":          true,
	"pre":        true,
	"code":       true,
	"span":       true,
	"blockquote": true,
}

var allowedAttrs = map[string]bool{
	"href":       true,
	"class":      true,
	"style":      true,
	"target":     true,
	"rel":        true,
	"expandable": true,
}

// Elements dropped together with their content.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
	"iframe":   true,
	"object":   true,
	"noscript": true,
}

// Link schemes kept in href. Relative links have no scheme and are kept too.
var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"tg":     true,
	"mailto": true,
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// SanitizeContent turns the inner HTML of a message text element into the
// content format: allow-listed tags only, "\n" for line breaks, emoji images
// collapsed to their characters. Text is decoded and escaped again, so no
// markup outside the allow-list can appear.
func SanitizeContent(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})

	if err != nil {
		return ""
	}

	var sb strings.Builder

	for _, n := range nodes {
		renderNode(&sb, n)
	}

	return normalizeText(sb.String())
}

func renderNode(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(textEscaper.Replace(n.Data))
		return
	case html.ElementNode:
	default:
		renderChildren(sb, n)
		return
	}

	tag := strings.ToLower(n.Data)

	switch {
	case tag == "br":
		sb.WriteString("\n")
	case droppedTags[tag]:
	case hasClass(n, "emoji"):
		sb.WriteString(textEscaper.Replace(nodeText(n)))
	case allowedTags[tag]:
		sb.WriteString("<" + tag)
		writeAttrs(sb, n)
		sb.WriteString(">")
		renderChildren(sb, n)
		sb.WriteString("</" + tag + ">")
	default:
		renderChildren(sb, n)
	}
}

func renderChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c)
	}
}

func writeAttrs(sb *strings.Builder, n *html.Node) {
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)

		if a.Namespace != "" || !allowedAttrs[key] {
			continue
		}

		val := a.Val

		if key == "href" {
			var ok bool

			if val, ok = safeHref(val); !ok {
				continue
			}
		}

		sb.WriteString(" " + key + `="` + html.EscapeString(val) + `"`)
	}
}

// safeHref returns href with the characters browsers ignore in URLs removed,
// and false when its scheme is not allowed.
func safeHref(href string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}

		return r
	}, href)

	u, err := url.Parse(cleaned)

	if err != nil {
		return "", false
	}

	if u.Scheme != "" && !allowedSchemes[strings.ToLower(u.Scheme)] {
		return "", false
	}

	return cleaned, true
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}

	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var sb strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}

	return sb.String()
}

// SanitizeText makes plain text safe to use as content by decoding and
// escaping it again.
func SanitizeText(text string) string {
	return normalizeText(textEscaper.Replace(html.UnescapeString(text)))
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	return strings.TrimSpace(text)
}
