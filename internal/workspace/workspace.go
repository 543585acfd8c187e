// Package workspace manages the per-document temporary folder the editor
// works in.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/models"
)

// IndexName is the body file inside a workspace.
const IndexName = "index.html"

// Workspace is the materialized copy of one document:
//
//	<tempRoot>/<guid>/index.html
//	<tempRoot>/<guid>/index_files/
type Workspace struct {
	GUID      string `json:"guid"`
	Dir       string `json:"dir"`
	IndexPath string `json:"index_path"`
	AssetDir  string `json:"asset_dir"`

	dirs host.DirectoryOps
}

// Open creates the workspace folders for doc under tempRoot and asks the
// document store to materialize the document into it.
func Open(ctx context.Context, dirs host.DirectoryOps, docs host.DocumentStore, tempRoot string, doc models.Document) (*Workspace, error) {
	if doc.GUID == "" {
		return nil, fmt.Errorf("workspace: open: empty guid: %w", apperr.ErrInvalidInput)
	}
	dir := filepath.Join(tempRoot, doc.GUID)
	ws := &Workspace{
		GUID:      doc.GUID,
		Dir:       dir,
		IndexPath: filepath.Join(dir, IndexName),
		AssetDir:  filepath.Join(dir, asset.DirName),
		dirs:      dirs,
	}
	for _, p := range []string{tempRoot, ws.Dir, ws.AssetDir} {
		if err := dirs.CreateDirectory(ctx, p); err != nil {
			return nil, fmt.Errorf("workspace: open: %w", err)
		}
	}
	if err := docs.MaterializeToFolder(ctx, doc, ws.Dir); err != nil {
		return nil, fmt.Errorf("workspace: materialize %s: %w", doc.GUID, err)
	}
	return ws, nil
}

// Discard removes the workspace folder.
func (w *Workspace) Discard(ctx context.Context) error {
	if err := w.dirs.RemoveDirectory(ctx, w.Dir); err != nil {
		return fmt.Errorf("workspace: discard %s: %w", w.GUID, err)
	}
	return nil
}
