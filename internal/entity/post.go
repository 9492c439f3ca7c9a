package entity

// MediaType classifies the media attached to a post.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

// Post is a single Telegram message extracted from its public web page.
type Post struct {
	Author string `json:"author"`
	// Username is the channel or group token taken from the requested link,
	// e.g. "durov" or "c/1234567". It is never read from the page.
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
	// Content is sanitized rich text: only allow-listed inline tags remain,
	// line breaks are "\n".
	Content      string  `json:"content"`
	ISOTimestamp *string `json:"isoTimestamp"`
	Views        *int64  `json:"views"`
	// Media is never nil. Entries are remote URLs after parsing and data URIs
	// after inlining.
	Media         []string       `json:"media"`
	MediaType     MediaType      `json:"mediaType,omitempty"`
	ForwardedFrom *ForwardedFrom `json:"forwardedFrom,omitempty"`
	ReplyTo       *ReplyTo       `json:"replyTo,omitempty"`
}

type ForwardedFrom struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type ReplyTo struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}

	c := *p
	c.Avatar = cloneString(p.Avatar)
	c.ISOTimestamp = cloneString(p.ISOTimestamp)

	if p.Views != nil {
		v := *p.Views
		c.Views = &v
	}

	c.Media = make([]string, len(p.Media))
	copy(c.Media, p.Media)

	if p.ForwardedFrom != nil {
		f := *p.ForwardedFrom
		c.ForwardedFrom = &f
	}

	if p.ReplyTo != nil {
		r := *p.ReplyTo
		c.ReplyTo = &r
	}

	return &c
}

// SetMedia replaces the media list and keeps MediaType consistent with it:
// the type is cleared when no media remains.
func (p *Post) SetMedia(media []string, mediaType MediaType) {
	if media == nil {
		media = []string{}
	}

	p.Media = media

	if len(media) == 0 {
		p.MediaType = ""
		return
	}

	p.MediaType = mediaType
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
