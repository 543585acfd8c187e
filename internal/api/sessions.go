package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/options"
	"github.com/starford/mdbridge/internal/session"
)

// SessionHandler serves the editor session routes.
type SessionHandler struct {
	mgr  *session.Manager
	opts *options.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(mgr *session.Manager, opts *options.Store) *SessionHandler {
	return &SessionHandler{mgr: mgr, opts: opts}
}

// session looks up the session named in the URL and writes a 404 when it
// is not open.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	guid := chi.URLParam(r, "guid")
	s, err := h.mgr.Get(guid)
	if err != nil {
		writeError(w, "get session failed", err, slog.String("guid", guid))
		return nil, false
	}
	return s, true
}

// Open handles POST /api/sessions.
//
//	@Summary		Open an editor session for a document
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Document to open"
//	@Success		201		{object}	SessionInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GUID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("guid is required"))
		return
	}
	s, err := h.mgr.Open(r.Context(), req.GUID)
	if err != nil {
		writeError(w, "open session failed", err, slog.String("guid", req.GUID))
		return
	}
	writeJSON(w, http.StatusCreated, s.Info())
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.mgr.List()})
}

// Get handles GET /api/sessions/{guid}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// Close handles DELETE /api/sessions/{guid}.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	guid := chi.URLParam(r, "guid")
	if err := h.mgr.Close(guid); err != nil {
		writeError(w, "close session failed", err, slog.String("guid", guid))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Load handles GET /api/sessions/{guid}/content.
//
//	@Summary		Load the session document as Markdown
//	@Tags			sessions
//	@Produce		json
//	@Param			guid	path		string	true	"Document GUID"
//	@Success		200		{object}	ContentResponse
//	@Security		BearerAuth
//	@Router			/sessions/{guid}/content [get]
func (h *SessionHandler) Load(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	md, err := s.Load(r.Context())
	if err != nil {
		writeError(w, "load failed", err, slog.String("guid", s.GUID()))
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Markdown: md})
}

// Save handles PUT /api/sessions/{guid}/content.
//
//	@Summary		Save Markdown from the editor
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			guid	path		string				true	"Document GUID"
//	@Param			body	body		SaveMarkdownRequest	true	"Editor content"
//	@Success		200		{object}	SaveResponse
//	@Security		BearerAuth
//	@Router			/sessions/{guid}/content [put]
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SaveMarkdownRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Save(r.Context(), req.Markdown)
	if err != nil {
		writeError(w, "save failed", err, slog.String("guid", s.GUID()))
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Saved: true, Markdown: res.Markdown, Assets: len(res.Assets)})
}

// HostSave handles POST /api/sessions/{guid}/host-save. The save only
// happens when it follows a recorded Ctrl press closely enough.
func (h *SessionHandler) HostSave(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SaveMarkdownRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, res, err := s.HostSave(r.Context(), req.Markdown)
	if err != nil {
		writeError(w, "host save failed", err, slog.String("guid", s.GUID()))
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Saved: saved, Markdown: res.Markdown, Assets: len(res.Assets)})
}

// MarkModified handles POST /api/sessions/{guid}/modified.
func (h *SessionHandler) MarkModified(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.MarkModified()
	w.WriteHeader(http.StatusNoContent)
}

// QueryModified handles POST /api/sessions/{guid}/query-modified. It
// reports the modified flag and clears it.
func (h *SessionHandler) QueryModified(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, FlagResponse{Value: s.QueryModified()})
}

// PlainPaste handles POST /api/sessions/{guid}/plain-paste.
func (h *SessionHandler) PlainPaste(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PlainPasteRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	var on bool
	if req.Enabled == nil {
		on = s.TogglePlainPaste()
	} else {
		on = *req.Enabled
		s.SetPlainPaste(on)
	}
	writeJSON(w, http.StatusOK, FlagResponse{Value: on})
}

// Paste handles POST /api/sessions/{guid}/paste.
func (h *SessionHandler) Paste(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PasteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	md, handled, err := s.Paste(req.HTML)
	if err != nil {
		writeError(w, "paste failed", err, slog.String("guid", s.GUID()))
		return
	}
	writeJSON(w, http.StatusOK, PasteResponse{Markdown: md, Handled: handled})
}

// InsertImage handles POST /api/sessions/{guid}/images with a JSON body
// naming a local file, e.g. a screen capture.
func (h *SessionHandler) InsertImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ImageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	md, err := s.InsertImage(r.Context(), host.FileImage(req.Path))
	if err != nil {
		writeError(w, "insert image failed", err, slog.String("guid", s.GUID()))
		return
	}
	writeJSON(w, http.StatusCreated, ImageResponse{Markdown: md})
}

// RecordCtrl handles POST /api/sessions/{guid}/ctrl.
func (h *SessionHandler) RecordCtrl(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.RecordCtrl()
	w.WriteHeader(http.StatusNoContent)
}

// RouteLink handles POST /api/sessions/{guid}/links.
func (h *SessionHandler) RouteLink(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.opts.Get(r.Context())
	if err != nil {
		writeError(w, "get options failed", err)
		return
	}
	action, target := s.RouteLink(r.Context(), req.Href, settings.OpenLinksInBrowser())
	writeJSON(w, http.StatusOK, LinkResponse{Action: action, Target: target})
}
