package transcode

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/mdbridge/internal/asset"
)

// imagePattern matches Markdown image syntax: prefix, locator, optional
// quoted title and the closing paren.
var imagePattern = regexp.MustCompile(`(!\[[^\[]*?\]\()(.+?)(\s+['"][\s\S]*?['"])?(\))`)

var textEncoder = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\t", "&nbsp;&nbsp;&nbsp;&nbsp;",
	"\r\n", "<br/>",
	"\n", "<br/>",
	"\r", "<br/>",
	"\u0085", "<br/>",
	"\u2028", "<br/>",
	"\u2029", "<br/>",
	" ", "&nbsp;",
)

// Resolver maps an image locator to a file inside the asset folder.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (asset.Ref, error)
}

// SaveResult is the outcome of serializing one Markdown text.
type SaveResult struct {
	// Markdown is the input with image locators rewritten to asset paths.
	Markdown string
	// HTML is the complete document to persist.
	HTML string
	// Assets lists one resolution per image reference, in text order.
	Assets []asset.Ref
}

// Serializer turns editor Markdown into the persisted HTML document.
type Serializer struct {
	assets Resolver
}

// NewSerializer returns a Serializer that resolves images through assets.
func NewSerializer(assets Resolver) *Serializer {
	return &Serializer{assets: assets}
}

// Serialize resolves every image reference in markdown, rewrites the
// locators and encodes the result as a rich-HTML document with the marker
// block listing the resolved images.
//
// A resolution error aborts the save; files copied before the error stay in
// the asset folder.
func (s *Serializer) Serialize(ctx context.Context, markdown string) (SaveResult, error) {
	matches := imagePattern.FindAllStringSubmatchIndex(markdown, -1)

	refs := make([]asset.Ref, 0, len(matches))
	for _, m := range matches {
		ref, err := s.assets.Resolve(ctx, markdown[m[4]:m[5]])
		if err != nil {
			return SaveResult{}, fmt.Errorf("transcode: serialize: %w", err)
		}
		refs = append(refs, ref)
	}

	var (
		b    strings.Builder
		tags []string
		last int
	)
	for i, m := range matches {
		b.WriteString(markdown[last:m[4]])
		b.WriteString(refs[i].Path)
		last = m[5]
		if refs[i].Found() {
			tags = append(tags, refs[i].Tag)
		}
	}
	b.WriteString(markdown[last:])
	rewritten := b.String()

	return SaveResult{
		Markdown: rewritten,
		HTML:     WrapDocument(EncodeText(rewritten) + MarkerBlock(tags)),
		Assets:   refs,
	}, nil
}

// EncodeText escapes text for the document body: HTML special characters
// are escaped, a tab becomes four non-breaking spaces, each line break is
// one <br/> and every space is a non-breaking space.
func EncodeText(text string) string {
	return textEncoder.Replace(text)
}
