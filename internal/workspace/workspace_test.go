package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/storage"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := vault.Create(ctx, models.Document{GUID: "g1", Title: "T"}, "<p>body</p>")
	if err != nil {
		t.Fatal(err)
	}

	root := filepath.Join(t.TempDir(), "nested", "tmp")
	ws, err := Open(ctx, host.NewLocal(), vault, root, doc)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ws.IndexPath != filepath.Join(root, "g1", "index.html") {
		t.Errorf("index path = %q", ws.IndexPath)
	}
	if info, err := os.Stat(ws.AssetDir); err != nil || !info.IsDir() {
		t.Errorf("asset dir: %v", err)
	}
	got, err := os.ReadFile(ws.IndexPath)
	if err != nil || string(got) != "<p>body</p>" {
		t.Errorf("index = %q, err = %v", got, err)
	}

	// Reopening over an existing workspace is fine.
	if _, err := Open(ctx, host.NewLocal(), vault, root, doc); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if err := ws.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace still present: %v", err)
	}
}

// recordingDirs wraps host.Local and records removed directories.
type recordingDirs struct {
	*host.Local
	removed []string
}

func (r *recordingDirs) RemoveDirectory(ctx context.Context, path string) error {
	r.removed = append(r.removed, path)
	return r.Local.RemoveDirectory(ctx, path)
}

func TestDiscard_UsesHostDirectoryOps(t *testing.T) {
	ctx := context.Background()
	vault, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc, err := vault.Create(ctx, models.Document{GUID: "g2", Title: "T"}, "<p>x</p>")
	if err != nil {
		t.Fatal(err)
	}

	dirs := &recordingDirs{Local: host.NewLocal()}
	ws, err := Open(ctx, dirs, vault, t.TempDir(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if len(dirs.removed) != 1 || dirs.removed[0] != ws.Dir {
		t.Errorf("removed = %v, want [%s]", dirs.removed, ws.Dir)
	}
	if _, err := os.Stat(ws.Dir); !os.IsNotExist(err) {
		t.Errorf("workspace still present: %v", err)
	}

	// Discarding twice is fine.
	if err := ws.Discard(ctx); err != nil {
		t.Errorf("second Discard: %v", err)
	}
}

func TestOpen_UnknownDocument(t *testing.T) {
	vault, _ := storage.NewFS(t.TempDir())
	_, err := Open(context.Background(), host.NewLocal(), vault, t.TempDir(), models.Document{GUID: "missing"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestOpen_EmptyGUID(t *testing.T) {
	vault, _ := storage.NewFS(t.TempDir())
	_, err := Open(context.Background(), host.NewLocal(), vault, t.TempDir(), models.Document{})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v", err)
	}
}
