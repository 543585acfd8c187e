// Package outline builds the table of contents and the counter statistics
// of a Markdown document.
package outline

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Heading is one entry of the outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

// Stats are the counters shown in the document info dialog.
type Stats struct {
	Characters         int `json:"characters"`
	CharactersNoSpaces int `json:"characters_no_spaces"`
	Words              int `json:"words"`
	Lines              int `json:"lines"`
	Paragraphs         int `json:"paragraphs"`
	Headings           int `json:"headings"`
	Images             int `json:"images"`
	Links              int `json:"links"`
	CodeBlocks         int `json:"code_blocks"`
}

// Result holds the output of analysing a Markdown text.
type Result struct {
	Frontmatter map[string]interface{} `json:"frontmatter,omitempty"`
	Title       string                 `json:"title"`
	Headings    []Heading              `json:"headings"`
	Stats       Stats                  `json:"stats"`
}

// Parse analyses raw Markdown.
func Parse(data []byte) *Result {
	fm, body, offset := splitFrontmatter(data)
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	res := &Result{Frontmatter: fm, Headings: []Heading{}}
	stats := &res.Stats
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			line := offset + 1
			if node.Lines().Len() > 0 {
				line += bytes.Count(src[:node.Lines().At(0).Start], []byte("\n"))
			}
			res.Headings = append(res.Headings, Heading{
				Level: node.Level,
				Text:  strings.TrimSpace(inlineText(node, src)),
				Line:  line,
			})
			stats.Headings++
		case *ast.Paragraph:
			stats.Paragraphs++
		case *ast.Image:
			stats.Images++
		case *ast.Link, *ast.AutoLink:
			stats.Links++
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			stats.CodeBlocks++
		}
		return ast.WalkContinue, nil
	})

	count(body, stats)
	res.Title = deriveTitle(fm, res.Headings)
	return res
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. It also returns the number of lines before the
// body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), 0
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), 0
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		// Invalid YAML is ordinary text.
		return nil, string(data), 0
	}

	after := rest[idx+1+len(delim):]
	body := bytes.TrimLeft(after, "\n\r")
	skipped := len(data) - len(body)
	return fm, string(body), bytes.Count(data[:skipped], []byte("\n"))
}

// inlineText concatenates the text of n's inline descendants.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, src))
		}
	}
	return b.String()
}

// count fills the text counters. Every CJK character counts as one word.
func count(body string, s *Stats) {
	if body != "" {
		s.Lines = strings.Count(body, "\n") + 1
		if strings.HasSuffix(body, "\n") {
			s.Lines--
		}
	}
	inWord := false
	for _, r := range body {
		if r == '\n' || r == '\r' {
			inWord = false
			continue
		}
		s.Characters++
		switch {
		case unicode.IsSpace(r):
			inWord = false
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			s.CharactersNoSpaces++
			s.Words++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '_':
			s.CharactersNoSpaces++
			if !inWord {
				s.Words++
			}
			inWord = true
		default:
			s.CharactersNoSpaces++
			inWord = false
		}
	}
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, headings []Heading) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
