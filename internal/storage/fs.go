package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otiai10/copy"
	"gopkg.in/yaml.v3"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/checksum"
	"github.com/starford/mdbridge/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
	now  func() time.Time
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, now: time.Now}, nil
}

// Root implements Provider.
func (f *FS) Root() string {
	return f.root
}

// GUIDFromPath returns the document GUID owning rel, a vault-relative path
// such as "<guid>/index.html". It returns "" for paths outside a document
// folder or inside its resource folder.
func GUIDFromPath(rel string) string {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(rel)), "/")
	if len(parts) != 2 || strings.HasPrefix(parts[0], ".") {
		return ""
	}
	if parts[1] != IndexFile && parts[1] != MetaFile {
		return ""
	}
	return parts[0]
}

// docDir resolves the folder of guid and rejects anything that is not a
// single path element under root.
func (f *FS) docDir(guid string) (string, error) {
	if guid == "" || guid == "." || guid == ".." || strings.ContainsAny(guid, `/\`) || strings.HasPrefix(guid, ".") {
		return "", fmt.Errorf("storage: invalid guid %q: %w", guid, apperr.ErrInvalidInput)
	}
	return filepath.Join(f.root, guid), nil
}

// Document implements host.DocumentStore.
func (f *FS) Document(_ context.Context, guid string) (models.Document, error) {
	dir, err := f.docDir(guid)
	if err != nil {
		return models.Document{}, err
	}
	return readMeta(dir, guid)
}

func readMeta(dir, guid string) (models.Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Document{}, fmt.Errorf("storage: document %s: %w", guid, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("storage: read meta %s: %w", guid, err)
	}
	var doc models.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("storage: decode meta %s: %w", guid, err)
	}
	// The folder name wins over whatever the file says.
	doc.GUID = guid
	return doc, nil
}

func (f *FS) writeMeta(dir string, doc models.Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("storage: encode meta %s: %w", doc.GUID, err)
	}
	return writeAtomic(filepath.Join(dir, MetaFile), data)
}

// List implements Provider. Folders without a metadata file are ignored.
func (f *FS) List(_ context.Context) ([]models.DocumentMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.DocumentMetadata
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(f.root, e.Name())
		doc, err := readMeta(dir, e.Name())
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		body, err := os.ReadFile(filepath.Join(dir, IndexFile))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.DocumentMetadata{
			GUID:      doc.GUID,
			Title:     doc.Title,
			Checksum:  checksum.Sum(body),
			UpdatedAt: doc.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out, nil
}

// Create implements Provider.
func (f *FS) Create(_ context.Context, doc models.Document, html string) (models.Document, error) {
	if doc.GUID == "" {
		doc.GUID = uuid.NewString()
	}
	dir, err := f.docDir(doc.GUID)
	if err != nil {
		return models.Document{}, err
	}
	if _, err := os.Stat(dir); err == nil {
		return models.Document{}, fmt.Errorf("storage: create %s: %w", doc.GUID, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Join(dir, asset.DirName), 0o755); err != nil {
		return models.Document{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	now := f.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if err := writeAtomic(filepath.Join(dir, IndexFile), []byte(html)); err != nil {
		return models.Document{}, err
	}
	if err := f.writeMeta(dir, doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// Content implements Provider.
func (f *FS) Content(_ context.Context, guid string) (string, error) {
	dir, err := f.docDir(guid)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("storage: content %s: %w", guid, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", guid, err)
	}
	return string(data), nil
}

// MaterializeToFolder implements host.DocumentStore. It copies index.html and
// the resource folder of doc into dir.
func (f *FS) MaterializeToFolder(ctx context.Context, doc models.Document, dir string) error {
	src, err := f.docDir(doc.GUID)
	if err != nil {
		return err
	}
	html, err := f.Content(ctx, doc.GUID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: materialize mkdir: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, IndexFile), []byte(html)); err != nil {
		return err
	}
	return syncResources(filepath.Join(src, asset.DirName), filepath.Join(dir, asset.DirName))
}

// UpdateDocumentContent implements host.DocumentStore. Resources in the
// index_files folder next to tempIndexPath are copied into the vault before
// the body is replaced.
func (f *FS) UpdateDocumentContent(_ context.Context, doc models.Document, html, tempIndexPath string) error {
	dir, err := f.docDir(doc.GUID)
	if err != nil {
		return err
	}
	current, err := readMeta(dir, doc.GUID)
	if err != nil {
		return err
	}
	if tempIndexPath != "" {
		res := filepath.Join(filepath.Dir(tempIndexPath), asset.DirName)
		if err := syncResources(res, filepath.Join(dir, asset.DirName)); err != nil {
			return err
		}
	}
	if err := writeAtomic(filepath.Join(dir, IndexFile), []byte(html)); err != nil {
		return err
	}
	if doc.Title != "" {
		current.Title = doc.Title
	}
	current.UpdatedAt = f.now().UTC()
	return f.writeMeta(dir, current)
}

// Delete implements Provider.
func (f *FS) Delete(_ context.Context, guid string) error {
	dir, err := f.docDir(guid)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, MetaFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", guid, apperr.ErrNotFound)
		}
		return fmt.Errorf("storage: delete %s: %w", guid, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("storage: delete %s: %w", guid, err)
	}
	return nil
}

// syncResources copies the resource folder src into dst. A missing src is
// not an error.
func syncResources(src, dst string) error {
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dst, 0o755)
	}
	if err != nil {
		return fmt.Errorf("storage: stat resources: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: resources %s is not a directory", src)
	}
	if err := copy.Copy(src, dst, copy.Options{Sync: true}); err != nil {
		return fmt.Errorf("storage: copy resources: %w", err)
	}
	return nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mdbridge-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
