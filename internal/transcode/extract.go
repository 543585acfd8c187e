package transcode

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultLinkPrefixes are the href prefixes of the host's internal note links.
var DefaultLinkPrefixes = []string{"wiz://open_", "note://"}

// Extractor turns a materialized rich-HTML document into the Markdown text
// shown in the editor.
type Extractor struct {
	linkPrefixes []string
}

// NewExtractor returns an Extractor that rewrites anchors whose href starts
// with one of linkPrefixes. Nil means DefaultLinkPrefixes.
func NewExtractor(linkPrefixes []string) *Extractor {
	if linkPrefixes == nil {
		linkPrefixes = DefaultLinkPrefixes
	}
	return &Extractor{linkPrefixes: linkPrefixes}
}

// Extract converts an HTML body (or a whole HTML document) to Markdown text.
//
// Images outside the Markdown image marker become ![](src), internal note
// links become [text](href), everything else is flattened to its visible
// text. Non-breaking spaces come back as plain spaces.
func (e *Extractor) Extract(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("transcode: parse html: %w", err)
	}
	root := doc.Find("body")

	// Replacements run last to first so earlier indices stay valid.
	imgs := root.Find("img")
	for i := imgs.Length() - 1; i >= 0; i-- {
		img := imgs.Eq(i)
		if name, _ := img.Parent().Attr("name"); name == MarkerName {
			continue
		}
		img.ReplaceWithNodes(textNode("![](" + img.AttrOr("src", "") + ")"))
	}

	links := root.Find("a")
	for i := links.Length() - 1; i >= 0; i-- {
		a := links.Eq(i)
		href := a.AttrOr("href", "")
		if !e.isInternalLink(href) {
			continue
		}
		a.ReplaceWithNodes(textNode("[" + a.Text() + "](" + href + ")"))
	}

	var f flattener
	for _, n := range root.Nodes {
		f.walk(n)
	}
	return strings.ReplaceAll(f.String(), "\u00a0", " "), nil
}

// ExtractDocument extracts a persisted index.html and rewrites image paths
// left by the host's own editor for document guid.
func (e *Extractor) ExtractDocument(document, guid string) (string, error) {
	text, err := e.Extract(document)
	if err != nil {
		return "", err
	}
	return RewriteLegacyAssetDir(text, guid), nil
}

func (e *Extractor) isInternalLink(href string) bool {
	for _, prefix := range e.linkPrefixes {
		if prefix != "" && strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

// RewriteLegacyAssetDir points image paths written by the host's own editor
// (<guid>_128_files/) back at the workspace asset folder.
func RewriteLegacyAssetDir(markdown, guid string) string {
	if guid == "" {
		return markdown
	}
	return strings.ReplaceAll(markdown, guid+"_128_files/", "index_files/")
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
