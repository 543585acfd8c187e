package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/session"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AssetHandler serves document resources and accepts image uploads into
// editor sessions.
type AssetHandler struct {
	vaultRoot string
	mgr       *session.Manager
}

// NewAssetHandler creates a handler for the vault at vaultRoot.
func NewAssetHandler(vaultRoot string, mgr *session.Manager) *AssetHandler {
	return &AssetHandler{vaultRoot: vaultRoot, mgr: mgr}
}

// safeName validates that name is a plain file name (no path separators,
// no traversal) and returns its absolute path under dir.
func safeName(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(dir, cleaned)
	if !strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes asset directory")
	}
	return abs, nil
}

func serveFrom(w http.ResponseWriter, r *http.Request, dir string) {
	abs, err := safeName(dir, chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// ServeDocumentAsset handles GET /api/documents/{guid}/assets/{name}.
func (h *AssetHandler) ServeDocumentAsset(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	if guid == "" || strings.HasPrefix(guid, ".") || strings.ContainsAny(guid, `/\`) {
		http.Error(w, "invalid guid", http.StatusBadRequest)
		return
	}
	serveFrom(w, r, filepath.Join(h.vaultRoot, guid, asset.DirName))
}

// ServeSessionAsset handles GET /api/sessions/{guid}/assets/{name}. It
// serves the workspace copy, which includes images not saved yet.
func (h *AssetHandler) ServeSessionAsset(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	s, err := h.mgr.Get(guid)
	if err != nil {
		writeError(w, "get session failed", err, slog.String("guid", guid))
		return
	}
	serveFrom(w, r, s.Workspace().AssetDir)
}

// Upload handles POST /api/sessions/{guid}/assets (multipart/form-data,
// field "file"). The upload goes through the session asset store like any
// other inserted image.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	s, err := h.mgr.Get(guid)
	if err != nil {
		writeError(w, "get session failed", err, slog.String("guid", guid))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	staging, err := os.MkdirTemp("", "mdbridge-upload-*")
	if err != nil {
		writeError(w, "upload staging failed", err)
		return
	}
	defer os.RemoveAll(staging)

	abs, err := safeName(staging, header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	dst, err := os.Create(abs)
	if err != nil {
		writeError(w, "upload create failed", err)
		return
	}
	written, err := io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(w, "upload write failed", err)
		return
	}

	md, err := s.InsertImage(r.Context(), host.FileImage(abs))
	if err != nil {
		writeError(w, "insert image failed", err, slog.String("guid", guid))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"filename": header.Filename,
		"size":     written,
		"markdown": md,
	})
}
