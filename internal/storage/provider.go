// Package storage implements the host document store on a vault directory.
//
// Each document lives in its own folder named by its GUID:
//
//	<vault>/<guid>/document.yaml   metadata
//	<vault>/<guid>/index.html      rich-HTML body
//	<vault>/<guid>/index_files/    resources referenced by the body
package storage

import (
	"context"

	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/models"
)

// Layout names inside a document folder.
const (
	MetaFile  = "document.yaml"
	IndexFile = "index.html"
)

// Provider is the vault document store.
type Provider interface {
	host.DocumentStore

	// List returns metadata for every document in the vault.
	List(ctx context.Context) ([]models.DocumentMetadata, error)
	// Create stores a new document with body html. An empty doc.GUID gets a
	// fresh one.
	Create(ctx context.Context, doc models.Document, html string) (models.Document, error)
	// Content returns the persisted index.html of guid.
	Content(ctx context.Context, guid string) (string, error)
	// Delete removes the document folder.
	Delete(ctx context.Context, guid string) error
	// Root is the absolute vault directory.
	Root() string
}
