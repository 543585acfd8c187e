package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/host"
)

func TestExtract(t *testing.T) {
	e := NewExtractor(nil)
	tests := []struct {
		name, in, want string
	}{
		{"breaks", "a<br>b<br/><br>c", "a\nb\n\nc"},
		{"blocks", "<div>a</div><div>b</div>", "a\nb"},
		{"paragraphs", "<p>a</p><p>b</p>", "a\n\nb"},
		{"collapse", "<p>  a \n  b  </p>", "a b"},
		{"pre", "<pre>a  b\n c</pre>", "a  b\n c"},
		{"nbsp", "a&nbsp;&nbsp;b", "a  b"},
		{"image", "<p>x<img src=\"index_files/a.png\">y</p>", "x![](index_files/a.png)y"},
		{"hidden", `<span style="display: none">secret</span>visible<script>x()</script>`, "visible"},
		{"internal link", `<a href="wiz://open_document?guid=1">Doc</a> and <a href="http://x">web</a>`, "[Doc](wiz://open_document?guid=1) and web"},
		{"note link", `<a href="note://abc">N</a>`, "[N](note://abc)"},
		{"table", "<table><tr><td>a</td><td>b</td></tr><tr><td>c</td></tr></table>", "a\tb\nc"},
		{"document", "<!DOCTYPE html><html><head><title>t</title></head><body>x</body></html>", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(tt.in)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_CustomPrefixes(t *testing.T) {
	e := NewExtractor([]string{"app://"})
	got, err := e.Extract(`<a href="app://x">A</a><a href="wiz://open_document">B</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[A](app://x)B" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_MarkerImagesStayHidden(t *testing.T) {
	body := "text<img src=\"index_files/plain.png\">" +
		MarkerBlock([]string{`<img src="/ws/index_files/md.png">`})
	got, err := NewExtractor(nil).Extract(WrapDocument(body))
	if err != nil {
		t.Fatal(err)
	}
	if got != "text![](index_files/plain.png)" {
		t.Errorf("got %q", got)
	}
}

func TestExtractDocument_RewritesLegacyDir(t *testing.T) {
	got, err := NewExtractor(nil).ExtractDocument(`<img src="g1_128_files/a.png">`, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "![](index_files/a.png)" {
		t.Errorf("got %q", got)
	}
}

func TestEncodeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a b", "a&nbsp;b"},
		{"\t", "&nbsp;&nbsp;&nbsp;&nbsp;"},
		{"a\r\nb", "a<br/>b"},
		{"a\nb\rc", "a<br/>b<br/>c"},
		{"a\u2028b\u2029c\u0085d", "a<br/>b<br/>c<br/>d"},
		{"<b>&</b>", "&lt;b&gt;&amp;&lt;/b&gt;"},
		{"&nbsp;", "&amp;nbsp;"},
	}
	for _, tt := range tests {
		if got := EncodeText(tt.in); got != tt.want {
			t.Errorf("EncodeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type stubResolver struct {
	refs map[string]asset.Ref
	err  error
	seen []string
}

func (s *stubResolver) Resolve(_ context.Context, locator string) (asset.Ref, error) {
	s.seen = append(s.seen, locator)
	if s.err != nil {
		return asset.Ref{}, s.err
	}
	if ref, ok := s.refs[locator]; ok {
		return ref, nil
	}
	return asset.Ref{Locator: locator, Path: locator}, nil
}

func TestSerialize_RewritesImages(t *testing.T) {
	r := &stubResolver{refs: map[string]asset.Ref{
		"/tmp/a.png": {Locator: "/tmp/a.png", Name: "a.png", Path: "index_files/a.png", Tag: `<img src="/ws/index_files/a.png">`},
	}}
	md := "x ![one](/tmp/a.png \"t\") ![two](missing.png)"

	res, err := NewSerializer(r).Serialize(context.Background(), md)
	if err != nil {
		t.Fatal(err)
	}
	if want := "x ![one](index_files/a.png \"t\") ![two](missing.png)"; res.Markdown != want {
		t.Errorf("markdown = %q, want %q", res.Markdown, want)
	}
	if len(res.Assets) != 2 || len(r.seen) != 2 {
		t.Fatalf("assets = %d, resolved = %v", len(res.Assets), r.seen)
	}
	wantBody := EncodeText(res.Markdown) + MarkerBlock([]string{`<img src="/ws/index_files/a.png">`})
	if res.HTML != WrapDocument(wantBody) {
		t.Errorf("html = %q", res.HTML)
	}
}

func TestSerialize_NoImagesNoMarker(t *testing.T) {
	res, err := NewSerializer(&stubResolver{}).Serialize(context.Background(), "plain")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.HTML, MarkerName) {
		t.Errorf("unexpected marker block in %q", res.HTML)
	}
	if res.HTML != WrapDocument("plain") {
		t.Errorf("html = %q", res.HTML)
	}
}

func TestSerialize_MalformedImageIsLiteral(t *testing.T) {
	r := &stubResolver{}
	res, err := NewSerializer(r).Serialize(context.Background(), "![broken(x.png) ![]()")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.seen) != 0 {
		t.Errorf("resolved %v", r.seen)
	}
	if res.Markdown != "![broken(x.png) ![]()" {
		t.Errorf("markdown = %q", res.Markdown)
	}
}

func TestSerialize_ResolveErrorAborts(t *testing.T) {
	boom := errors.New("disk full")
	_, err := NewSerializer(&stubResolver{err: boom}).Serialize(context.Background(), "![](a.png)")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	folder := filepath.Join(t.TempDir(), asset.DirName)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "pic.png")
	if err := os.WriteFile(src, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := asset.NewStore(host.NewLocal(), folder)
	ser := NewSerializer(store)
	ext := NewExtractor(nil)

	md := "# Title\n\n  indented  line\n![alt](" + filepath.ToSlash(src) + " \"cap\")\n<b>a & b</b>\n[doc](wiz://open_document?guid=1)\n"

	first, err := ser.Serialize(context.Background(), md)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(first.Markdown, "![alt](index_files/pic.png \"cap\")") {
		t.Fatalf("markdown = %q", first.Markdown)
	}
	back, err := ext.Extract(first.HTML)
	if err != nil {
		t.Fatal(err)
	}
	if back != first.Markdown {
		t.Fatalf("round trip:\n got %q\nwant %q", back, first.Markdown)
	}

	second, err := ser.Serialize(context.Background(), back)
	if err != nil {
		t.Fatal(err)
	}
	if second.Markdown != first.Markdown || second.HTML != first.HTML {
		t.Errorf("second cycle is not a fixed point:\n%q\n%q", first.HTML, second.HTML)
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("asset folder has %d files, want 1", len(entries))
	}
}

func TestClipboardConvert(t *testing.T) {
	c := NewClipboardConverter()
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"blank", "  \n", ""},
		{"div keeps newline", "<div>hello</div>", "hello\n"},
		{"span unwrapped", "<span>a</span><span>b</span>", "ab"},
		{"reference link dropped", `<h2><a class="reference-link" href="#x"></a>Heading</h2>`, "## Heading"},
		{"reference link text dropped", `<p>see <a class="reference-link" href="#x">X</a> end</p>`, "see  end"},
		{"reference link among classes", `<p>a<a class="toc reference-link">hidden</a>b</p>`, "ab"},
		{"regular link", `<a href="http://x.test">x</a>`, "[x](http://x.test)"},
		{"bold", "<strong>bold</strong>", "**bold**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.in)
			if err != nil {
				t.Fatalf("Convert: %v", err)
			}
			if got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
