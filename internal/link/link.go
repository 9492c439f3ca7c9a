// Package link validates Telegram message links before anything touches the
// network.
package link

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nDmitry/tgsnap/internal/entity"
)

const (
	// Domain is the canonical host every outbound page request goes to.
	Domain = "t.me"

	groupPrefix = "c/"
)

// AllowedHosts lists the only hosts a link may point to.
var AllowedHosts = []string{"t.me", "telegram.me"}

var linkRegex = regexp.MustCompile(`^https?://(t\.me|telegram\.me)/(c/\d+|[a-zA-Z0-9_]+)/(\d+)$`)

var (
	errGrammar   = errors.New("link does not match t.me/<channel>/<id> or t.me/c/<group>/<id>")
	errHost      = errors.New("host is not allowed")
	errScheme    = errors.New("scheme must be https")
	errUserinfo  = errors.New("userinfo is not allowed")
	errHostPort  = errors.New("explicit port is not allowed")
	errReparsing = errors.New("could not parse link")
)

type Kind string

const (
	KindChannel Kind = "channel"
	KindGroup   Kind = "group"
)

// Link is a validated reference to a single public message.
type Link struct {
	Kind Kind
	// Identifier is the channel username or the numeric group id.
	Identifier string
	MessageID  string
}

// Parse validates raw and returns the message it points to. The grammar match
// and the host/scheme check are independent: the second one re-parses the
// URL and must pass on its own.
func Parse(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)

	m := linkRegex.FindStringSubmatch(raw)

	if m == nil {
		return Link{}, entity.NewError(entity.KindInvalidLinkFormat, fmt.Errorf("%q: %w", raw, errGrammar))
	}

	if err := checkHost(raw); err != nil {
		return Link{}, entity.NewError(entity.KindUntrustedHost, fmt.Errorf("%q: %w", raw, err))
	}

	l := Link{Kind: KindChannel, Identifier: m[2], MessageID: m[3]}

	if strings.HasPrefix(m[2], groupPrefix) {
		l.Kind = KindGroup
		l.Identifier = strings.TrimPrefix(m[2], groupPrefix)
	}

	return l, nil
}

// checkHost re-parses the URL and pins the scheme and host.
func checkHost(raw string) error {
	u, err := url.Parse(raw)

	if err != nil {
		return fmt.Errorf("%w: %w", errReparsing, err)
	}

	if u.Scheme != "https" {
		return errScheme
	}

	if u.User != nil {
		return errUserinfo
	}

	if u.Port() != "" {
		return errHostPort
	}

	if !IsAllowedHost(u.Hostname()) {
		return fmt.Errorf("%w: %s", errHost, u.Hostname())
	}

	return nil
}

// IsAllowedHost reports whether host is one of AllowedHosts.
func IsAllowedHost(host string) bool {
	host = strings.ToLower(host)

	for _, h := range AllowedHosts {
		if host == h {
			return true
		}
	}

	return false
}

// Token is the path segment identifying the chat: "durov" or "c/1234567".
func (l Link) Token() string {
	if l.Kind == KindGroup {
		return groupPrefix + l.Identifier
	}

	return l.Identifier
}

// PostID is the value Telegram puts into the data-post attribute.
func (l Link) PostID() string {
	return l.Token() + "/" + l.MessageID
}

// URL is the canonical https link to the message.
func (l Link) URL() string {
	return fmt.Sprintf("https://%s/%s", Domain, l.PostID())
}

// EmbedURL is the widget render of the message.
func (l Link) EmbedURL() string {
	return l.URL() + "?embed=1&mode=tme"
}

// StaticURL is the channel listing render anchored at the message.
func (l Link) StaticURL() string {
	return fmt.Sprintf("https://%s/s/%s", Domain, l.PostID())
}
