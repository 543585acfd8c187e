package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/testutil"
	"github.com/starford/mdbridge/internal/transcode"
)

// pngHeader is enough for http.DetectContentType to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testServer(t *testing.T) (*Server, *docservice.Service) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := docservice.NewService(store, db, transcode.NewExtractor(nil), host.NewLocal(), t.TempDir())
	return New(svc, t.TempDir()), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_documents":    srv.searchDocuments,
		"list_documents":      srv.listDocuments,
		"read_document":       srv.readDocument,
		"create_document":     srv.createDocument,
		"save_document":       srv.saveDocument,
		"get_backlinks":       srv.getBacklinks,
		"get_outline":         srv.getOutline,
		"convert_html":        srv.convertHTML,
		"import_asset":        srv.importAsset,
		"get_format_contract": srv.getFormatContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func createDoc(t *testing.T, srv *Server, title, markdown string) string {
	t.Helper()
	r := callTool(t, srv, "create_document", map[string]any{"title": title, "markdown": markdown})
	text := resultText(r)
	if r.IsError || !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	guid, _, _ := strings.Cut(strings.TrimPrefix(text, "created: "), " ")
	return guid
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, svc := testServer(t)
	guid := createDoc(t, srv, "", "# Test\nHello")

	r := callTool(t, srv, "read_document", map[string]any{"guid": guid})
	text := resultText(r)
	d, err := svc.GetDocument(context.Background(), guid)
	if err != nil {
		t.Fatal(err)
	}
	want := "checksum: " + d.Checksum + "\ntitle: Test\n\n# Test\nHello"
	if text != want {
		t.Errorf("read result = %q, want %q", text, want)
	}
}

func TestSaveDocument(t *testing.T) {
	srv, svc := testServer(t)
	guid := createDoc(t, srv, "T", "v1")
	d, _ := svc.GetDocument(context.Background(), guid)

	r := callTool(t, srv, "save_document", map[string]any{"guid": guid, "markdown": "v2", "checksum": d.Checksum})
	if r.IsError {
		t.Fatalf("save failed: %s", resultText(r))
	}
	r = callTool(t, srv, "save_document", map[string]any{"guid": guid, "markdown": "v3", "checksum": d.Checksum})
	if !r.IsError || !strings.Contains(resultText(r), "changed") {
		t.Errorf("stale save = %q", resultText(r))
	}
}

func TestListDocuments(t *testing.T) {
	srv, _ := testServer(t)
	a := createDoc(t, srv, "Alpha", "a")
	b := createDoc(t, srv, "Beta", "b")

	r := callTool(t, srv, "list_documents", map[string]any{})
	want := a + "\tAlpha\n" + b + "\tBeta"
	if text := resultText(r); text != want {
		t.Errorf("list = %q, want %q", text, want)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"guid": "nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t)
	target := createDoc(t, srv, "Target", "x")
	src := createDoc(t, srv, "Source", "see [t](wiz://open_document?guid="+target+")")

	r := callTool(t, srv, "get_backlinks", map[string]any{"guid": target})
	if text := resultText(r); text != src {
		t.Errorf("backlinks = %q, want %q", text, src)
	}
	r = callTool(t, srv, "get_backlinks", map[string]any{"guid": src})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestSearchAndOutline(t *testing.T) {
	srv, _ := testServer(t)
	guid := createDoc(t, srv, "Zoo", "# Animals\n\nzebra")

	r := callTool(t, srv, "search_documents", map[string]any{"query": "zebra"})
	if !strings.Contains(resultText(r), guid) {
		t.Errorf("search = %q", resultText(r))
	}
	r = callTool(t, srv, "get_outline", map[string]any{"guid": guid})
	if !strings.Contains(resultText(r), `"text": "Animals"`) {
		t.Errorf("outline = %q", resultText(r))
	}
}

func TestConvertHTML(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "convert_html", map[string]any{"html": "<strong>x</strong>"})
	if text := resultText(r); text != "**x**" {
		t.Errorf("convert = %q", text)
	}
}

func TestImportAsset_DataURI(t *testing.T) {
	srv, svc := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)

	r := callTool(t, srv, "import_asset", map[string]any{"url": uri, "filename": "chart.png"})
	if r.IsError {
		t.Fatalf("import failed: %s", resultText(r))
	}
	var res importResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(res.StagedPath, "/chart.png") || res.Size != len(pngHeader) {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(res.StagedPath); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}

	// Saving the returned reference copies the image into the document.
	guid := createDoc(t, srv, "Chart", res.MarkdownImage)
	d, err := svc.GetDocument(context.Background(), guid)
	if err != nil {
		t.Fatal(err)
	}
	if d.Markdown != "![chart](index_files/chart.png)" {
		t.Errorf("markdown = %q", d.Markdown)
	}
}

func TestImportAsset_Rejects(t *testing.T) {
	srv, _ := testServer(t)
	cases := map[string]map[string]any{
		"not base64":    {"url": "data:image/png,abc"},
		"bad mime":      {"url": "data:text/plain;base64,aGk="},
		"wrong content": {"url": "data:image/png;base64,aGVsbG8=", "filename": "x.png"},
		"bad extension": {"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader), "filename": "x.exe"},
		"bad scheme":    {"url": "ftp://example.com/x.png"},
		"loopback host": {"url": "http://127.0.0.1/x.png"},
		"metadata host": {"url": "http://169.254.169.254/latest"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "import_asset", args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"my photo (1).png": "my_photo__1_.png",
		"ok-name_1.jpg":    "ok-name_1.jpg",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_format_contract", nil)
	if !strings.Contains(resultText(r), "index_files/") {
		t.Error("contract should document the asset folder")
	}
}
