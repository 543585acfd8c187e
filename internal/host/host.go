// Package host defines the host application API consumed by the transcoding
// pipeline. Every call may round-trip to the host, so all of them take a
// context and may fail.
package host

import (
	"context"

	"github.com/starford/mdbridge/internal/models"
)

// Text file encodings accepted by TextIO.SaveTextToFile.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
)

// DirectoryOps is the filesystem primitive set used by the asset store and the
// temp workspace.
type DirectoryOps interface {
	// CreateDirectory creates path (and parents). Existing directories are fine.
	CreateDirectory(ctx context.Context, path string) error
	// PathExists reports whether a file or directory exists at path.
	PathExists(ctx context.Context, path string) (bool, error)
	// CopyFile copies the bytes at src to dst, replacing dst.
	CopyFile(ctx context.Context, src, dst string) error
	// RemoveDirectory removes path and everything below it. A missing path
	// is not an error.
	RemoveDirectory(ctx context.Context, path string) error
}

// TextIO loads and saves whole text files.
type TextIO interface {
	LoadTextFromFile(ctx context.Context, path string) (string, error)
	SaveTextToFile(ctx context.Context, path, text, encoding string) error
}

// DocumentStore is the host's document store.
type DocumentStore interface {
	// Document returns the handle for guid.
	Document(ctx context.Context, guid string) (models.Document, error)
	// MaterializeToFolder writes index.html and index_files/ of doc into dir.
	MaterializeToFolder(ctx context.Context, doc models.Document, dir string) error
	// UpdateDocumentContent persists html as the document body. Resources
	// referenced from the temp workspace are taken from the folder that holds
	// tempIndexPath.
	UpdateDocumentContent(ctx context.Context, doc models.Document, html, tempIndexPath string) error
}

// ImageSource produces a filesystem path to an image, e.g. from the clipboard
// or a screen capture. An empty path means nothing was produced.
type ImageSource interface {
	ImagePath(ctx context.Context) (string, error)
}
