package transcode

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const referenceLinkClass = "reference-link"

// ClipboardConverter turns pasted HTML fragments into Markdown.
type ClipboardConverter struct {
	conv *md.Converter
}

// NewClipboardConverter returns a converter with GitHub flavored output and
// the paste rules: div keeps its content on its own line, span is unwrapped
// and anchors marked as reference links are dropped.
func NewClipboardConverter() *ClipboardConverter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	conv.AddRules(
		md.Rule{
			Filter: []string{"div"},
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return md.String(content + "\n")
			},
		},
		md.Rule{
			Filter: []string{"span"},
			Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
				return md.String(content)
			},
		},
		md.Rule{
			Filter: []string{"a"},
			Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
				if !hasReferenceClass(selec.AttrOr("class", "")) {
					return nil
				}
				return md.String("")
			},
		},
	)
	return &ClipboardConverter{conv: conv}
}

// Convert returns the Markdown for fragment. An empty fragment yields "".
func (c *ClipboardConverter) Convert(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	out, err := c.conv.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("transcode: convert clipboard: %w", err)
	}
	// The converter trims its output; a trailing div still ends the line.
	if out != "" && endsWithDiv(fragment) {
		out = strings.TrimRight(out, "\n") + "\n"
	}
	return out, nil
}

func hasReferenceClass(class string) bool {
	for _, c := range strings.Fields(class) {
		if strings.Contains(c, referenceLinkClass) {
			return true
		}
	}
	return false
}

func endsWithDiv(fragment string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return false
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return false
	}
	for n := body.Nodes[0].LastChild; n != nil; n = n.PrevSibling {
		switch n.Type {
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return false
			}
		case html.ElementNode:
			return n.Data == "div"
		}
	}
	return false
}
