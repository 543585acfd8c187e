package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/models"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestCreateAndRead(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()

	doc, err := s.Create(ctx, models.Document{Title: "Hello"}, "<p>hi</p>")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.GUID == "" || doc.CreatedAt.IsZero() {
		t.Fatalf("doc = %+v", doc)
	}

	got, err := s.Document(ctx, doc.GUID)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got.Title != "Hello" || got.GUID != doc.GUID {
		t.Errorf("got %+v", got)
	}
	body, err := s.Content(ctx, doc.GUID)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if body != "<p>hi</p>" {
		t.Errorf("content = %q", body)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), doc.GUID, asset.DirName)); err != nil {
		t.Errorf("resource folder missing: %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, models.Document{GUID: "g1"}, ""); err != nil {
		t.Fatal(err)
	}
	_, err := s.Create(ctx, models.Document{GUID: "g1"}, "")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestDocumentNotFound(t *testing.T) {
	s := tempVault(t)
	if _, err := s.Document(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := s.Content(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()
	doc, _ := s.Create(ctx, models.Document{Title: "bye"}, "x")
	if err := s.Delete(ctx, doc.GUID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Document(ctx, doc.GUID); err == nil {
		t.Error("expected error reading deleted document")
	}
	if err := s.Delete(ctx, doc.GUID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()
	_, _ = s.Create(ctx, models.Document{GUID: "b", Title: "B"}, "b")
	_, _ = s.Create(ctx, models.Document{GUID: "a", Title: "A"}, "a")
	_ = os.MkdirAll(filepath.Join(s.Root(), "stray"), 0o755)
	_ = os.MkdirAll(filepath.Join(s.Root(), ".hidden"), 0o755)

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].GUID != "a" || items[1].Title != "B" {
		t.Errorf("items = %+v", items)
	}
	if items[0].Checksum == "" {
		t.Error("missing checksum")
	}
}

func TestMaterializeAndUpdate(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()
	doc, _ := s.Create(ctx, models.Document{GUID: "g", Title: "T"}, "<p>v1</p>")
	res := filepath.Join(s.Root(), "g", asset.DirName, "old.png")
	if err := os.WriteFile(res, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	ws := filepath.Join(t.TempDir(), "g")
	if err := s.MaterializeToFolder(ctx, doc, ws); err != nil {
		t.Fatalf("MaterializeToFolder: %v", err)
	}
	if got, _ := os.ReadFile(filepath.Join(ws, IndexFile)); string(got) != "<p>v1</p>" {
		t.Errorf("materialized body = %q", got)
	}
	if _, err := os.Stat(filepath.Join(ws, asset.DirName, "old.png")); err != nil {
		t.Errorf("resource not materialized: %v", err)
	}

	if err := os.WriteFile(filepath.Join(ws, asset.DirName, "new.png"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateDocumentContent(ctx, doc, "<p>v2</p>", filepath.Join(ws, IndexFile)); err != nil {
		t.Fatalf("UpdateDocumentContent: %v", err)
	}
	if body, _ := s.Content(ctx, "g"); body != "<p>v2</p>" {
		t.Errorf("content = %q", body)
	}
	if got, _ := os.ReadFile(filepath.Join(s.Root(), "g", asset.DirName, "new.png")); string(got) != "new" {
		t.Errorf("new resource = %q", got)
	}
	after, _ := s.Document(ctx, "g")
	if after.UpdatedAt.Before(doc.UpdatedAt) || after.Title != "T" {
		t.Errorf("meta after update = %+v", after)
	}
}

func TestUpdateUnknownDocument(t *testing.T) {
	s := tempVault(t)
	err := s.UpdateDocumentContent(context.Background(), models.Document{GUID: "missing"}, "x", "")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()

	cases := []string{
		"../../etc",
		"..",
		"a/b",
		`a\b`,
		"",
	}
	for _, g := range cases {
		if _, err := s.Document(ctx, g); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Document(%q) err = %v", g, err)
		}
		if _, err := s.Create(ctx, models.Document{GUID: g}, "x"); g != "" && err == nil {
			t.Errorf("expected error for create of %q", g)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempVault(t)
	ctx := context.Background()
	doc, _ := s.Create(ctx, models.Document{GUID: "atomic"}, "original")
	if err := s.UpdateDocumentContent(ctx, doc, "updated", ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), "atomic", ".mdbridge-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestGUIDFromPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"g1/index.html", "g1"},
		{"g1/document.yaml", "g1"},
		{"g1/index_files/a.png", ""},
		{"g1/.mdbridge-tmp-1", ""},
		{".trash/index.html", ""},
		{"index.html", ""},
	}
	for _, tt := range tests {
		if got := GUIDFromPath(tt.in); got != tt.want {
			t.Errorf("GUIDFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/mdbridge-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "mdbridge-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
