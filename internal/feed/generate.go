package feed

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/nDmitry/tgsnap/internal/entity"
)

const (
	channelURLPrefix = "https://t.me/"
	titleLength      = 80
)

// Generator renders posts as feeds.
type Generator struct{}

func (g *Generator) Generate(post *entity.Post, postURL string, format string) ([]byte, error) {
	return Generate(post, postURL, format)
}

// Generate renders a single post as a one-item RSS or Atom feed.
func Generate(post *entity.Post, postURL string, format string) ([]byte, error) {
	channelURL := channelURLPrefix + post.Username

	feed := &feeds.Feed{
		Title:  fmt.Sprintf("%s (@%s)", post.Author, post.Username),
		Link:   &feeds.Link{Href: channelURL},
		Author: &feeds.Author{Name: post.Author},
	}

	if post.Avatar != nil {
		feed.Image = &feeds.Image{Url: *post.Avatar, Title: post.Author, Link: channelURL}
	}

	item := &feeds.Item{
		Id:          postURL,
		Title:       itemTitle(post),
		Link:        &feeds.Link{Href: postURL},
		Author:      &feeds.Author{Name: post.Author},
		Content:     strings.ReplaceAll(post.Content, "\n", "<br>"),
		Description: post.Content,
	}

	if post.ISOTimestamp != nil {
		if created, err := time.Parse(time.RFC3339, *post.ISOTimestamp); err == nil {
			item.Created = created
			feed.Created = created
		}
	}

	if len(post.Media) > 0 {
		item.Enclosure = &feeds.Enclosure{
			Url:    post.Media[0],
			Type:   "image/jpeg",
			Length: "0",
		}
	}

	feed.Items = append(feed.Items, item)

	var content string
	var err error

	switch format {
	case entity.FormatRSS:
		content, err = feed.ToRss()
	case entity.FormatAtom:
		content, err = feed.ToAtom()
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("could not marshal post %s to feed: %w", postURL, err)
	}

	return []byte(content), nil
}

// itemTitle is the first line of the post, shortened, or the author when
// the post has no text.
func itemTitle(post *entity.Post) string {
	line, _, _ := strings.Cut(html.UnescapeString(stripTags(post.Content)), "\n")
	line = strings.TrimSpace(line)

	if line == "" {
		return post.Author
	}

	if r := []rune(line); len(r) > titleLength {
		return string(r[:titleLength]) + "…"
	}

	return line
}

func stripTags(content string) string {
	var sb strings.Builder

	inTag := false

	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
