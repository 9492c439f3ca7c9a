package link_test

import (
	"net/url"
	"testing"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected link.Link
		kind     entity.ErrorKind
	}{
		{
			name:     "Channel link",
			raw:      "https://t.me/durov/32",
			expected: link.Link{Kind: link.KindChannel, Identifier: "durov", MessageID: "32"},
		},
		{
			name:     "Telegram.me host",
			raw:      "https://telegram.me/some_channel/1",
			expected: link.Link{Kind: link.KindChannel, Identifier: "some_channel", MessageID: "1"},
		},
		{
			name:     "Group link",
			raw:      "https://t.me/c/1234567/89",
			expected: link.Link{Kind: link.KindGroup, Identifier: "1234567", MessageID: "89"},
		},
		{
			name:     "Surrounding whitespace is trimmed",
			raw:      "  https://t.me/durov/32\n",
			expected: link.Link{Kind: link.KindChannel, Identifier: "durov", MessageID: "32"},
		},
		{name: "Plain http is rejected by the host check", raw: "http://t.me/durov/32", kind: entity.KindUntrustedHost},
		{name: "Other domain", raw: "https://example.com/durov/32", kind: entity.KindInvalidLinkFormat},
		{name: "Lookalike domain", raw: "https://t.me.evil.com/durov/32", kind: entity.KindInvalidLinkFormat},
		{name: "Userinfo trick", raw: "https://t.me@evil.com/durov/32", kind: entity.KindInvalidLinkFormat},
		{name: "Encoded host", raw: "https://t%2Eme/durov/32", kind: entity.KindInvalidLinkFormat},
		{name: "Non numeric message id", raw: "https://t.me/durov/abc", kind: entity.KindInvalidLinkFormat},
		{name: "Missing message id", raw: "https://t.me/durov", kind: entity.KindInvalidLinkFormat},
		{name: "Query string", raw: "https://t.me/durov/32?single", kind: entity.KindInvalidLinkFormat},
		{name: "Non numeric group", raw: "https://t.me/c/abc/32", kind: entity.KindInvalidLinkFormat},
		{name: "Dash in channel", raw: "https://t.me/du-rov/32", kind: entity.KindInvalidLinkFormat},
		{name: "Empty", raw: "", kind: entity.KindInvalidLinkFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := link.Parse(tt.raw)

			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, entity.KindOf(err))
				assert.Equal(t, entity.MsgInvalidLink, entity.AsError(err).Message)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, l)
		})
	}
}

// Any accepted link must re-parse to an allowed https host.
func TestParse_AcceptedLinksAreHTTPSAndAllowed(t *testing.T) {
	inputs := []string{
		"https://t.me/durov/32",
		"https://telegram.me/durov/32",
		"https://t.me/c/1/1",
		"http://t.me/durov/32",
		"https://T.ME/durov/32",
		"https://t.me:443/durov/32",
		"https://t.me/durov/32#frag",
		"https://t.me\\@evil.com/durov/32",
		"https://evil.com#@t.me/durov/32",
	}

	for _, raw := range inputs {
		if _, err := link.Parse(raw); err != nil {
			continue
		}

		u, err := url.Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "https", u.Scheme, raw)
		assert.True(t, link.IsAllowedHost(u.Hostname()), raw)
	}
}

func TestLink_URLs(t *testing.T) {
	channel := link.Link{Kind: link.KindChannel, Identifier: "durov", MessageID: "32"}
	group := link.Link{Kind: link.KindGroup, Identifier: "1234567", MessageID: "89"}

	assert.Equal(t, "durov/32", channel.PostID())
	assert.Equal(t, "https://t.me/durov/32?embed=1&mode=tme", channel.EmbedURL())
	assert.Equal(t, "https://t.me/s/durov/32", channel.StaticURL())

	assert.Equal(t, "c/1234567", group.Token())
	assert.Equal(t, "https://t.me/c/1234567/89?embed=1&mode=tme", group.EmbedURL())
	assert.Equal(t, "https://t.me/s/c/1234567/89", group.StaticURL())
}
