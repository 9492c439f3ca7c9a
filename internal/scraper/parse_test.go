package scraper

import (
	"testing"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var durov32 = link.Link{Kind: link.KindChannel, Identifier: "durov", MessageID: "32"}

const embedPage = `<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Pavel Durov - Du Rove&#39;s Channel">
<meta property="og:description" content="Summary of the post">
</head>
<body class="widget_frame_base tgme_widget body_widget_post emoji_image nodark">
<div class="tgme_widget_message text_not_supported_wrap js-widget_message" data-post="durov/32">
  <div class="tgme_widget_message_user"><a href="https://t.me/durov"><i class="tgme_widget_message_user_photo bgcolor1" data-content="P"><img src="https://cdn4.telesco.pe/file/avatar.jpg"></i></a></div>
  <div class="tgme_widget_message_bubble">
    <div class="tgme_widget_message_forwarded_from accent_color">Forwarded from <a class="tgme_widget_message_forwarded_from_name" href="https://t.me/telegram/100"><span dir="auto">Telegram News</span></a></div>
    <a class="tgme_widget_message_reply" href="https://t.me/durov/31">
      <div class="tgme_widget_message_author accent_color"><span class="tgme_widget_message_author_name" dir="auto">Pavel Durov</span></div>
      <div class="tgme_widget_message_metatext js-message_reply_text" dir="auto">Earlier post text</div>
    </a>
    <a class="tgme_widget_message_photo_wrap" href="https://t.me/durov/32?single" style="width:800px;background-image:url('https://cdn4.telesco.pe/file/photo1.jpg')"></a>
    <a class="tgme_widget_message_photo_wrap" href="https://t.me/durov/32?single" style="width:800px;background-image:url('https://cdn4.telesco.pe/file/photo2.jpg')"></a>
    <a class="tgme_widget_message_photo_wrap" href="https://t.me/durov/32?single" style="width:800px;background-image:url('https://cdn4.telesco.pe/file/photo1.jpg')"></a>
    <div class="tgme_widget_message_text js-message_text" dir="auto">Lots of <a href="https://t.me/telegram">@telegram</a> users asked for <b>larger</b> groups<br/><br/>Not me, obviously &amp; <i class="emoji" style="background-image:url('//telegram.org/img/emoji/40/F09F9880.png')"><b>😀</b></i><script>alert(1)</script><div class="extra">done</div></div>
    <div class="tgme_widget_message_footer compact js-message_footer">
      <div class="tgme_widget_message_info short js-message_info">
        <span class="tgme_widget_message_views">1.2K</span>
        <span class="tgme_widget_message_meta"><a class="tgme_widget_message_date" href="https://t.me/durov/32"><time datetime="2015-10-30T13:34:00+00:00" class="time">Oct 30, 2015</time></a></span>
      </div>
    </div>
  </div>
</div>
</body>
</html>`

func TestParse_EmbedPage(t *testing.T) {
	post, err := Parse([]byte(embedPage), durov32, true)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "Pavel Durov", post.Author)
	assert.Equal(t, "durov", post.Username)
	require.NotNil(t, post.Avatar)
	assert.Equal(t, "https://cdn4.telesco.pe/file/avatar.jpg", *post.Avatar)
	assert.Equal(t,
		"Lots of <a href=\"https://t.me/telegram\">@telegram</a> users asked for <b>larger</b> groups\n\nNot me, obviously &amp; 😀done",
		post.Content,
	)
	require.NotNil(t, post.ISOTimestamp)
	assert.Equal(t, "2015-10-30T13:34:00+00:00", *post.ISOTimestamp)
	require.NotNil(t, post.Views)
	assert.Equal(t, int64(1200), *post.Views)
	assert.Equal(t, []string{
		"https://cdn4.telesco.pe/file/photo1.jpg",
		"https://cdn4.telesco.pe/file/photo2.jpg",
	}, post.Media)
	assert.Equal(t, entity.MediaPhoto, post.MediaType)
	assert.Equal(t, &entity.ForwardedFrom{Name: "Telegram News", URL: "https://t.me/telegram/100"}, post.ForwardedFrom)
	assert.Equal(t, &entity.ReplyTo{Author: "Pavel Durov", Text: "Earlier post text"}, post.ReplyTo)
}

func TestParse_Idempotent(t *testing.T) {
	first, err := Parse([]byte(embedPage), durov32, true)
	require.NoError(t, err)

	second, err := Parse([]byte(embedPage), durov32, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParse_StaticPageWithoutMessage(t *testing.T) {
	page := `<html><body><div class="tgme_widget_message" data-post="durov/31"><div class="tgme_widget_message_text">Other</div></div></body></html>`

	post, err := Parse([]byte(page), durov32, false)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestParse_EmbedPageWithoutWrapperUsesDocument(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Solo"></head><body>
<div class="tgme_widget_message_text js-message_text">Hello</div>
<span class="tgme_widget_message_views">12,345</span>
</body></html>`

	post, err := Parse([]byte(page), durov32, true)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "Solo", post.Author)
	assert.Equal(t, "Hello", post.Content)
	require.NotNil(t, post.Views)
	assert.Equal(t, int64(12345), *post.Views)
	assert.Nil(t, post.Avatar)
	assert.Nil(t, post.ISOTimestamp)
	assert.NotNil(t, post.Media)
	assert.Empty(t, post.Media)
	assert.Empty(t, post.MediaType)
}

func TestParse_ProtectedMarker(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Author - Channel"></head><body>
<div class="tgme_widget_message" data-post="durov/32">
  <div class="tgme_widget_message_text js-message_text">Visible text</div>
  <div class="message_media_not_supported"><div class="message_media_not_supported_label">Please open Telegram to view this post</div></div>
</div></body></html>`

	for _, embed := range []bool{true, false} {
		post, err := Parse([]byte(page), durov32, embed)

		require.Error(t, err)
		assert.Nil(t, post)
		assert.Equal(t, entity.KindProtected, entity.KindOf(err))
	}
}

func TestParse_ProtectedNeighbourOnStaticPage(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Pavel Durov"></head><body>
<div class="tgme_widget_message" data-post="durov/31">
  <div class="message_media_not_supported_label">Please open Telegram to view this post</div>
</div>
<div class="tgme_widget_message" data-post="durov/32">
  <div class="tgme_widget_message_text js-message_text">Intact post</div>
</div></body></html>`

	post, err := Parse([]byte(page), durov32, false)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "Intact post", post.Content)

	other := link.Link{Kind: link.KindChannel, Identifier: "durov", MessageID: "31"}

	_, err = Parse([]byte(page), other, false)
	assert.Equal(t, entity.KindProtected, entity.KindOf(err))
}

func TestParse_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		kind     entity.ErrorKind
		expected string
	}{
		{name: "Restricted", text: "This channel is restricted in your country", kind: entity.KindRestricted, expected: entity.MsgRestricted},
		{name: "Violation", text: "This message violated local laws", kind: entity.KindRestricted, expected: entity.MsgRestricted},
		{name: "Forwarding disabled", text: "Forwarding from this channel is not allowed", kind: entity.KindProtected, expected: entity.MsgProtected},
		{name: "Other", text: "Post not found", kind: entity.KindMalformed, expected: "Post not found"},
		{name: "Empty", text: "", kind: entity.KindMalformed, expected: entity.MsgMalformedDef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><body><div class="tgme_widget_message" data-post="durov/32"><div class="tgme_widget_message_error">` + tt.text + `</div></div></body></html>`

			post, err := Parse([]byte(page), durov32, true)

			require.Error(t, err)
			assert.Nil(t, post)
			assert.Equal(t, tt.kind, entity.KindOf(err))
			assert.Equal(t, tt.expected, entity.AsError(err).Message)
		})
	}
}

func TestParse_Media(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		media     []string
		mediaType entity.MediaType
	}{
		{
			name:      "Video",
			body:      `<a class="tgme_widget_message_video_player" href="#"><i class="tgme_widget_message_video_thumb" style="background-image:url('https://cdn/thumb.jpg')"></i></a><div class="tgme_widget_message_photo_wrap" style="background-image:url('https://cdn/photo.jpg')"></div>`,
			media:     []string{"https://cdn/thumb.jpg"},
			mediaType: entity.MediaVideo,
		},
		{
			name:      "GIF by player class",
			body:      `<a class="tgme_widget_message_video_player tgme_widget_message_gif" href="#"><i class="tgme_widget_message_video_thumb" style="background-image:url(&quot;https://cdn/gif.jpg&quot;)"></i></a>`,
			media:     []string{"https://cdn/gif.jpg"},
			mediaType: entity.MediaGIF,
		},
		{
			name:      "GIF by document icon",
			body:      `<a class="tgme_widget_message_video_player" href="#"><i class="tgme_widget_message_video_thumb" style="background-image:url('//cdn/gif.jpg')"></i></a><i class="document_icon_gif"></i>`,
			media:     []string{"https://cdn/gif.jpg"},
			mediaType: entity.MediaGIF,
		},
		{
			name:      "Video without thumbnail falls back to photos",
			body:      `<a class="tgme_widget_message_video_player" href="#"></a><div class="tgme_widget_message_photo_wrap" style="background-image:url('https://cdn/photo.jpg')"></div>`,
			media:     []string{"https://cdn/photo.jpg"},
			mediaType: entity.MediaPhoto,
		},
		{
			name:      "Photo with broken style",
			body:      `<div class="tgme_widget_message_photo_wrap" style="background-image:none"></div>`,
			media:     []string{},
			mediaType: "",
		},
		{
			name:      "No media",
			body:      `<div class="tgme_widget_message_text">Text</div>`,
			media:     []string{},
			mediaType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<html><body><div class="tgme_widget_message" data-post="durov/32">` + tt.body + `</div></body></html>`

			post, err := Parse([]byte(page), durov32, false)
			require.NoError(t, err)
			require.NotNil(t, post)

			assert.Equal(t, tt.media, post.Media)
			assert.Equal(t, tt.mediaType, post.MediaType)
		})
	}
}

func TestParse_AvatarFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected *string
	}{
		{
			name:     "Lazy source",
			body:     `<div class="tgme_widget_message" data-post="durov/32"><i class="tgme_widget_message_user_photo"><img data-src="https://cdn/lazy.jpg"></i></div>`,
			expected: strPtr("https://cdn/lazy.jpg"),
		},
		{
			name:     "Icon background",
			body:     `<div class="tgme_widget_message" data-post="durov/32"><i class="tgme_widget_message_user_photo"><i style="background-image:url('https://cdn/icon.jpg')"></i></i></div>`,
			expected: strPtr("https://cdn/icon.jpg"),
		},
		{
			name:     "Outside of the message block",
			body:     `<div class="tgme_widget_message" data-post="durov/32"></div><i class="tgme_widget_message_user_photo"><img src="//cdn/outer.jpg"></i>`,
			expected: strPtr("https://cdn/outer.jpg"),
		},
		{
			name: "Relative source is dropped",
			body: `<div class="tgme_widget_message" data-post="durov/32"><i class="tgme_widget_message_user_photo"><img src="/img/avatar.jpg"></i></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, err := Parse([]byte(`<html><body>`+tt.body+`</body></html>`), durov32, true)
			require.NoError(t, err)
			require.NotNil(t, post)

			assert.Equal(t, tt.expected, post.Avatar)
		})
	}
}

func TestParse_ContentFallsBackToDescription(t *testing.T) {
	page := `<html><head><meta property="og:title" content="Group Chat"><meta property="og:description" content="Fish &amp; chips &lt;3"></head>
<body><div class="tgme_widget_message" data-post="c/123/5"></div></body></html>`

	group := link.Link{Kind: link.KindGroup, Identifier: "123", MessageID: "5"}

	post, err := Parse([]byte(page), group, true)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Equal(t, "c/123", post.Username)
	assert.Equal(t, "Group Chat", post.Author)
	assert.Equal(t, "Fish &amp; chips &lt;3", post.Content)
}

func TestParse_TimestampMatchesExactPath(t *testing.T) {
	page := `<html><body>
<a href="https://t.me/durov/320"><time datetime="2020-01-01T00:00:00+00:00"></time></a>
<div class="tgme_widget_message" data-post="durov/32"></div>
<a href="https://t.me/durov/32?single"><time datetime="2015-10-30T13:34:00+00:00"></time></a>
</body></html>`

	post, err := Parse([]byte(page), durov32, false)
	require.NoError(t, err)
	require.NotNil(t, post)
	require.NotNil(t, post.ISOTimestamp)

	assert.Equal(t, "2015-10-30T13:34:00+00:00", *post.ISOTimestamp)
}

func TestParse_EmptyForwardAndReplyAreOmitted(t *testing.T) {
	page := `<html><body><div class="tgme_widget_message" data-post="durov/32">
<div class="tgme_widget_message_forwarded_from">Forwarded from <span class="tgme_widget_message_forwarded_from_name"> </span></div>
<div class="tgme_widget_message_reply"><div class="tgme_widget_message_metatext">Quoted</div></div>
</div></body></html>`

	post, err := Parse([]byte(page), durov32, false)
	require.NoError(t, err)
	require.NotNil(t, post)

	assert.Nil(t, post.ForwardedFrom)
	assert.Nil(t, post.ReplyTo)
}

func strPtr(s string) *string {
	return &s
}
