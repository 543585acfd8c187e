package index

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/checksum"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/transcode"
)

// Watcher event kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

var linkTargetRe = regexp.MustCompile(`\]\(([^)\s]+)\)`)

// Sync walks the vault and brings the index up to date:
//   - new/changed documents are extracted and upserted
//   - documents removed from the vault are deleted from the index
func Sync(db *DB, store storage.Provider, ext *transcode.Extractor, logger *slog.Logger) error {
	metas, err := store.List(context.Background())
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.GUID] = struct{}{}

		if checksums[m.GUID] == m.Checksum {
			continue
		}
		if err := IndexDocument(db, store, ext, m.GUID); err != nil {
			logger.Warn("sync: index failed", slog.String("guid", m.GUID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("guid", m.GUID))
		}
	}

	// Remove stale entries.
	for g := range checksums {
		if _, ok := disk[g]; !ok {
			if err := db.DeleteDocument(g); err != nil {
				logger.Warn("sync: delete failed", slog.String("guid", g), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("guid", g))
			}
		}
	}

	return nil
}

// IndexDocument extracts the current content of guid and upserts it.
func IndexDocument(db *DB, store storage.Provider, ext *transcode.Extractor, guid string) error {
	ctx := context.Background()
	doc, err := store.Document(ctx, guid)
	if err != nil {
		return err
	}
	html, err := store.Content(ctx, guid)
	if err != nil {
		return err
	}
	body, err := ext.ExtractDocument(html, guid)
	if err != nil {
		return err
	}
	row := DocumentRow{
		GUID:      guid,
		Title:     doc.Title,
		Checksum:  checksum.String(html),
		UpdatedAt: doc.UpdatedAt,
	}
	return db.UpsertDocument(row, body, documentLinks(body))
}

// Refresh re-indexes guid, or removes it when the document is gone. It
// returns the kind of change applied.
func Refresh(db *DB, store storage.Provider, ext *transcode.Extractor, guid string) (string, error) {
	prev, err := db.GetChecksum(guid)
	if err != nil {
		return "", err
	}
	err = IndexDocument(db, store, ext, guid)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if prev == "" {
			return "", nil
		}
		if err := db.DeleteDocument(guid); err != nil {
			return "", err
		}
		return KindDeleted, nil
	case err != nil:
		return "", err
	case prev == "":
		return KindCreated, nil
	default:
		return KindUpdated, nil
	}
}

// documentLinks returns the deduplicated GUIDs of documents linked from
// markdown.
func documentLinks(markdown string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range linkTargetRe.FindAllStringSubmatch(markdown, -1) {
		t, ok := links.Parse(m[1])
		if !ok || t.Attachment {
			continue
		}
		if _, dup := seen[t.GUID]; dup {
			continue
		}
		seen[t.GUID] = struct{}{}
		out = append(out, t.GUID)
	}
	return out
}
