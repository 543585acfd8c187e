// Package docservice coordinates the vault, the catalog index and the
// transcoding pipeline for whole-document operations.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/checksum"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/outline"
	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/transcode"
	"github.com/starford/mdbridge/internal/workspace"
)

// Change kinds passed to the notifier.
const (
	KindCreated = index.KindCreated
	KindUpdated = index.KindUpdated
	KindDeleted = index.KindDeleted
	KindSaved   = "saved"
)

// DefaultTitle names documents created without a title or heading.
const DefaultTitle = "Untitled"

// serviceDir is the folder under the temp root used for imports and
// out-of-session saves, apart from the editor workspaces.
const serviceDir = ".service"

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Markdown  string    `json:"markdown"`
	Checksum  string    `json:"checksum"`
	Backlinks []string  `json:"backlinks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notifier is told about every document change made through the service.
type Notifier func(kind, guid string)

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	ext      *transcode.Extractor
	dirs     host.DirectoryOps
	tempRoot string
	notify   Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers fn for change notifications.
func WithNotifier(fn Notifier) Option {
	return func(s *Service) {
		s.notify = fn
	}
}

// NewService creates a new document service. tempRoot holds the
// workspaces the service materializes documents into.
func NewService(store storage.Provider, db *index.DB, ext *transcode.Extractor, dirs host.DirectoryOps, tempRoot string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		ext:      ext,
		dirs:     dirs,
		tempRoot: tempRoot,
		notify:   func(string, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying document store.
func (s *Service) Store() storage.Provider {
	return s.store
}

// Extractor returns the Markdown extractor used for loads.
func (s *Service) Extractor() *transcode.Extractor {
	return s.ext
}

// GetDocument loads guid and extracts its Markdown.
func (s *Service) GetDocument(ctx context.Context, guid string) (*DocumentDetail, error) {
	doc, err := s.store.Document(ctx, guid)
	if err != nil {
		return nil, err
	}
	html, err := s.store.Content(ctx, guid)
	if err != nil {
		return nil, err
	}
	md, err := s.ext.ExtractDocument(html, guid)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(guid)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		GUID:      doc.GUID,
		Title:     doc.Title,
		Markdown:  md,
		Checksum:  checksum.String(html),
		Backlinks: nonNilSlice(bl),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// CreateDocument creates a document from Markdown. An empty title is taken
// from the Markdown outline. Image references are resolved the same way a
// save does.
func (s *Service) CreateDocument(ctx context.Context, title, markdown string) (*DocumentDetail, error) {
	if strings.TrimSpace(title) == "" {
		title = outline.Parse([]byte(markdown)).Title
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	doc, err := s.store.Create(ctx, models.Document{Title: title}, transcode.WrapDocument(""))
	if err != nil {
		return nil, err
	}
	if _, err := s.saveMarkdown(ctx, doc, markdown); err != nil {
		return nil, err
	}
	s.notify(KindCreated, doc.GUID)
	return s.GetDocument(ctx, doc.GUID)
}

// SaveMarkdown replaces the body of guid with markdown. A non-empty ifMatch
// must equal the checksum of the current body.
func (s *Service) SaveMarkdown(ctx context.Context, guid, markdown, ifMatch string) (*DocumentDetail, error) {
	doc, err := s.store.Document(ctx, guid)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" {
		current, err := s.store.Content(ctx, guid)
		if err != nil {
			return nil, err
		}
		if checksum.Sum([]byte(current)) != ifMatch {
			return nil, apperr.ErrConflict
		}
	}
	if _, err := s.saveMarkdown(ctx, doc, markdown); err != nil {
		return nil, err
	}
	s.notify(KindSaved, guid)
	return s.GetDocument(ctx, guid)
}

// saveMarkdown serializes markdown in a scratch workspace and commits it.
func (s *Service) saveMarkdown(ctx context.Context, doc models.Document, markdown string) (transcode.SaveResult, error) {
	ws, err := workspace.Open(ctx, s.dirs, s.store, filepath.Join(s.tempRoot, serviceDir), doc)
	if err != nil {
		return transcode.SaveResult{}, err
	}
	defer ws.Discard(context.WithoutCancel(ctx))

	ser := transcode.NewSerializer(asset.NewStore(s.dirs, ws.AssetDir))
	res, err := ser.Serialize(ctx, markdown)
	if err != nil {
		return transcode.SaveResult{}, err
	}
	if err := s.Commit(ctx, doc, res.HTML, ws.IndexPath); err != nil {
		return transcode.SaveResult{}, err
	}
	return res, nil
}

// Commit persists html as the body of doc, taking resources from the
// workspace holding tempIndexPath, and re-indexes the document. The index
// is left alone when the store update fails.
func (s *Service) Commit(ctx context.Context, doc models.Document, html, tempIndexPath string) error {
	if err := s.store.UpdateDocumentContent(ctx, doc, html, tempIndexPath); err != nil {
		return fmt.Errorf("docservice: commit %s: %w", doc.GUID, err)
	}
	if err := index.IndexDocument(s.db, s.store, s.ext, doc.GUID); err != nil {
		return fmt.Errorf("docservice: index %s: %w", doc.GUID, err)
	}
	return nil
}

// NotifySaved reports a save made outside the service, e.g. by a session.
func (s *Service) NotifySaved(guid string) {
	s.notify(KindSaved, guid)
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(ctx context.Context, guid string) error {
	if err := s.store.Delete(ctx, guid); err != nil {
		return err
	}
	if err := s.db.DeleteDocument(guid); err != nil {
		return err
	}
	s.notify(KindDeleted, guid)
	return nil
}

// ListDocuments returns a page of the catalog.
func (s *Service) ListDocuments(_ context.Context, limit, offset int, sort string) ([]models.DocumentMetadata, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.DocumentMetadata, len(rows))
	for i, r := range rows {
		items[i] = models.DocumentMetadata{
			GUID:      r.GUID,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Backlinks returns the GUIDs of documents linking to guid.
func (s *Service) Backlinks(_ context.Context, guid string) ([]string, error) {
	bl, err := s.db.Backlinks(guid)
	return nonNilSlice(bl), err
}

// Outline returns the headings and counters of the stored document.
func (s *Service) Outline(ctx context.Context, guid string) (*outline.Result, error) {
	d, err := s.GetDocument(ctx, guid)
	if err != nil {
		return nil, err
	}
	return outline.Parse([]byte(d.Markdown)), nil
}

// Open implements links.Opener. Documents must exist in the vault;
// attachments are not kept by the vault and never open.
func (s *Service) Open(ctx context.Context, t links.Target) error {
	if t.Attachment {
		return fmt.Errorf("docservice: open attachment %s: %w", t.GUID, apperr.ErrNotFound)
	}
	if _, err := s.store.Document(ctx, t.GUID); err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			return fmt.Errorf("docservice: open %s: %w", t.GUID, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

var _ links.Opener = (*Service)(nil)

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
