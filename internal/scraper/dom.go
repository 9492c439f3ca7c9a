package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is the read-only view of a parsed page the parser works with.
type Node interface {
	// Find returns the first descendant matching selector.
	Find(selector string) (Node, bool)
	// FindAll returns every descendant matching selector in document order.
	FindAll(selector string) []Node
	Attr(name string) (string, bool)
	Text() string
	HasClass(class string) bool
	InnerHTML() string
	// Without returns a detached copy of the node with every descendant
	// matching selector removed.
	Without(selector string) Node
}

// NewDocument parses an HTML page into a Node.
func NewDocument(html []byte) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))

	if err != nil {
		return nil, fmt.Errorf("could not parse HTML: %w", err)
	}

	return &selection{doc.Selection}, nil
}

type selection struct {
	s *goquery.Selection
}

func (n *selection) Find(sel string) (Node, bool) {
	found := n.s.Find(sel).First()

	if found.Length() == 0 {
		return nil, false
	}

	return &selection{found}, true
}

func (n *selection) FindAll(sel string) []Node {
	var nodes []Node

	n.s.Find(sel).Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &selection{s})
	})

	return nodes
}

func (n *selection) Attr(name string) (string, bool) {
	return n.s.Attr(name)
}

func (n *selection) Text() string {
	return n.s.Text()
}

func (n *selection) HasClass(class string) bool {
	return n.s.HasClass(class)
}

func (n *selection) InnerHTML() string {
	html, err := n.s.Html()

	if err != nil {
		return ""
	}

	return html
}

func (n *selection) Without(sel string) Node {
	clone := n.s.Clone()
	clone.Find(sel).Remove()

	return &selection{clone}
}

// attrOrEmpty reads an attribute, treating whitespace-only values as absent.
func attrOrEmpty(n Node, name string) string {
	v, _ := n.Attr(name)
	return strings.TrimSpace(v)
}
