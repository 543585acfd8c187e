package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/transcode"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of KindCreated, KindUpdated, KindDeleted.
type EventCallback func(kind string, guid string)

// Watch starts an fsnotify watcher on the vault root and processes document
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Document folders created at runtime are added to the watch list. Removing
// or renaming a folder triggers a reconciliation pass that drops index
// entries whose documents no longer exist.
func Watch(ctx context.Context, db *DB, store storage.Provider, ext *transcode.Extractor, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	refresh := func(guid string) {
		kind, err := Refresh(db, store, ext, guid)
		if err != nil {
			logger.Warn("watcher: index failed", slog.String("guid", guid), slog.String("error", err.Error()))
			return
		}
		if kind == "" {
			return
		}
		logger.Debug("watcher: indexed", slog.String("guid", guid), slog.String("op", kind))
		if cb != nil {
			cb(kind, guid)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, ext, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					// A folder moved into the vault arrives complete.
					if guid := folderGUID(rel); guid != "" {
						refresh(guid)
					}
					// Files written before the watch was added raise no events.
					scheduleReconcile()
					continue
				}
			}

			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if guid := folderGUID(rel); guid != "" {
					refresh(guid)
					scheduleReconcile()
					continue
				}
			}

			guid := storage.GUIDFromPath(rel)
			if guid == "" {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			refresh(guid)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// folderGUID returns the GUID when rel names a document folder directly
// under the vault root.
func folderGUID(rel string) string {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || strings.Contains(rel, "/") || strings.HasPrefix(rel, ".") {
		return ""
	}
	return rel
}

// reconcile does a lightweight sync using batch lookups: it removes index
// entries without a document in the vault and indexes documents whose
// content changed.
func reconcile(db *DB, store storage.Provider, ext *transcode.Extractor, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List(context.Background())
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.GUID] = m.Checksum
	}

	for g := range checksums {
		if _, ok := disk[g]; !ok {
			if delErr := db.DeleteDocument(g); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("guid", g))
				if cb != nil {
					cb(KindDeleted, g)
				}
			}
		}
	}

	for g, cs := range disk {
		prev, ok := checksums[g]
		if ok && prev == cs {
			continue
		}
		if idxErr := IndexDocument(db, store, ext, g); idxErr == nil {
			kind := KindUpdated
			if !ok {
				kind = KindCreated
			}
			logger.Debug("reconcile: indexed", slog.String("guid", g))
			if cb != nil {
				cb(kind, g)
			}
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
