package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdbridge/internal/checksum"
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/options"
	"github.com/starford/mdbridge/internal/transcode"
)

// Handler holds the document, search, option and conversion handlers.
type Handler struct {
	svc      *docservice.Service
	opts     *options.Store
	clip     *transcode.ClipboardConverter
	onChange func(keys []string)
}

// NewHandler creates a new Handler. onChange, if non-nil, is told which
// option keys a PUT /options changed.
func NewHandler(svc *docservice.Service, opts *options.Store, onChange func(keys []string)) *Handler {
	if onChange == nil {
		onChange = func([]string) {}
	}
	return &Handler{
		svc:      svc,
		opts:     opts,
		clip:     transcode.NewClipboardConverter(),
		onChange: onChange,
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list documents failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/{guid}.
//
//	@Summary		Get a document as Markdown
//	@Tags			documents
//	@Produce		json
//	@Param			guid	path		string	true	"Document GUID"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{guid} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	doc, err := h.svc.GetDocument(r.Context(), guid)
	if err != nil {
		writeError(w, "get document failed", err, slog.String("guid", guid))
		return
	}
	w.Header().Set("ETag", checksum.ETag(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a document from Markdown
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Markdown == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("markdown is required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.Title, req.Markdown)
	if err != nil {
		writeError(w, "create document failed", err, slog.String("title", req.Title))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// SaveDocument handles PUT /api/documents/{guid}.
//
//	@Summary		Replace a document body with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			guid		path	string				true	"Document GUID"
//	@Param			If-Match	header	string				false	"SHA-256 checksum of the current body"
//	@Param			body		body	SaveMarkdownRequest	true	"New content"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{guid} [put]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	var req SaveMarkdownRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	doc, err := h.svc.SaveMarkdown(r.Context(), guid, req.Markdown, ifMatch)
	if err != nil {
		writeError(w, "save document failed", err, slog.String("guid", guid))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{guid}.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			guid	path	string	true	"Document GUID"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{guid} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	if err := h.svc.DeleteDocument(r.Context(), guid); err != nil {
		writeError(w, "delete document failed", err, slog.String("guid", guid))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Outline handles GET /api/documents/{guid}/outline.
//
//	@Summary		Headings and counters of a document
//	@Tags			documents
//	@Produce		json
//	@Param			guid	path		string	true	"Document GUID"
//	@Success		200		{object}	outline.Result
//	@Security		BearerAuth
//	@Router			/documents/{guid}/outline [get]
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	res, err := h.svc.Outline(r.Context(), guid)
	if err != nil {
		writeError(w, "outline failed", err, slog.String("guid", guid))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Backlinks handles GET /api/documents/{guid}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	bl, err := h.svc.Backlinks(r.Context(), guid)
	if err != nil {
		writeError(w, "backlinks failed", err, slog.String("guid", guid))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search failed", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetOptions handles GET /api/options.
//
//	@Summary		Current editor options and toolbar layout
//	@Tags			options
//	@Produce		json
//	@Success		200	{object}	OptionsResponse
//	@Security		BearerAuth
//	@Router			/options [get]
func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	s, err := h.opts.Get(r.Context())
	if err != nil {
		writeError(w, "get options failed", err)
		return
	}
	writeJSON(w, http.StatusOK, OptionsResponse{
		Settings: s,
		Toolbar:  options.ToolbarButtons(s.EditToolbarButton),
	})
}

// SaveOptions handles PUT /api/options.
//
//	@Summary		Replace the editor options
//	@Tags			options
//	@Accept			json
//	@Produce		json
//	@Param			body	body		options.Settings	true	"All option values"
//	@Success		200		{object}	OptionsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/options [put]
func (h *Handler) SaveOptions(w http.ResponseWriter, r *http.Request) {
	next := options.Defaults()
	if !decodeJSON(w, r, &next) {
		return
	}
	changed, err := h.opts.Save(r.Context(), next)
	if err != nil {
		writeError(w, "save options failed", err)
		return
	}
	if len(changed) > 0 {
		h.onChange(changed)
	}
	writeJSON(w, http.StatusOK, OptionsResponse{
		Settings: next,
		Toolbar:  options.ToolbarButtons(next.EditToolbarButton),
		Changed:  changed,
	})
}

// ConvertClipboard handles POST /api/convert/clipboard. It converts an HTML
// fragment without an editor session.
func (h *Handler) ConvertClipboard(w http.ResponseWriter, r *http.Request) {
	var req PasteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	md, err := h.clip.Convert(req.HTML)
	if err != nil {
		writeError(w, "convert failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Markdown: md})
}
