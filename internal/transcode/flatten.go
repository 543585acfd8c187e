package transcode

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// flattener renders a node tree to plain text the way a browser's innerText
// does for the markup notes contain: <br> is a newline, block elements sit on
// their own lines, <pre> keeps its whitespace and other whitespace runs
// collapse to one space.
type flattener struct {
	b       strings.Builder
	breaks  int  // line breaks owed before the next text
	space   bool // collapsed whitespace owed before the next text
	afterBr bool // last output was a <br>
	pre     int
}

func (f *flattener) String() string {
	return f.b.String()
}

func (f *flattener) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if f.pre > 0 {
			f.writeRaw(n.Data)
		} else {
			f.writeCollapsed(n.Data)
		}
		return
	case html.ElementNode:
		if hidden(n) {
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Br:
		f.flushBreaks()
		f.b.WriteByte('\n')
		f.space = false
		f.afterBr = true
		return
	case atom.Td, atom.Th:
		if prevCell(n) {
			f.writeRaw("\t")
		}
	case atom.Pre:
		f.pre++
		defer func() { f.pre-- }()
	}

	lines := blockBreaks(n)
	f.lineBreak(lines)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
	f.lineBreak(lines)
}

func (f *flattener) lineBreak(n int) {
	if n == 0 {
		return
	}
	f.space = false
	if n > f.breaks {
		f.breaks = n
	}
}

func (f *flattener) flushBreaks() {
	n := f.breaks
	f.breaks = 0
	if f.b.Len() == 0 {
		return
	}
	if f.afterBr && n > 0 {
		n--
	}
	for ; n > 0; n-- {
		f.b.WriteByte('\n')
	}
}

func (f *flattener) writeRaw(s string) {
	if s == "" {
		return
	}
	f.flushBreaks()
	f.space = false
	f.afterBr = false
	f.b.WriteString(s)
}

func (f *flattener) writeCollapsed(s string) {
	for _, r := range s {
		if isCollapsible(r) {
			f.space = true
			continue
		}
		if f.breaks > 0 {
			f.flushBreaks()
			f.space = false
		}
		if f.space && !f.atLineStart() {
			f.b.WriteByte(' ')
		}
		f.space = false
		f.afterBr = false
		f.b.WriteRune(r)
	}
}

func (f *flattener) atLineStart() bool {
	s := f.b.String()
	return s == "" || s[len(s)-1] == '\n'
}

func isCollapsible(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func blockBreaks(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return 2
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Dd,
		atom.Details, atom.Div, atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption,
		atom.Figure, atom.Footer, atom.Form, atom.Header, atom.Hr, atom.Li,
		atom.Main, atom.Nav, atom.Ol, atom.Pre, atom.Section, atom.Summary,
		atom.Table, atom.Tr, atom.Ul:
		return 1
	}
	return 0
}

func hidden(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Title, atom.Noscript, atom.Template:
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			style := strings.ToLower(strings.Join(strings.Fields(a.Val), ""))
			if strings.Contains(style, "display:none") {
				return true
			}
		}
	}
	return false
}

func prevCell(n *html.Node) bool {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && (s.DataAtom == atom.Td || s.DataAtom == atom.Th) {
			return true
		}
	}
	return false
}
