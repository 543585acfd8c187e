package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/options"
	"github.com/starford/mdbridge/internal/session"
)

// RouterConfig holds what the API router serves.
type RouterConfig struct {
	Docs     *docservice.Service
	Sessions *session.Manager
	Options  *options.Store

	// AuthEnabled controls whether Bearer token auth is enforced.
	AuthEnabled bool
	Token       string

	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// OnOptionsChanged is told which option keys a save changed.
	OnOptionsChanged func(keys []string)
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Docs, cfg.Options, cfg.OnOptionsChanged)
	sh := NewSessionHandler(cfg.Sessions, cfg.Options)
	ah := NewAssetHandler(cfg.Docs.Store().Root(), cfg.Sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/{guid}", h.GetDocument)
	r.Put("/documents/{guid}", h.SaveDocument)
	r.Delete("/documents/{guid}", h.DeleteDocument)
	r.Get("/documents/{guid}/outline", h.Outline)
	r.Get("/documents/{guid}/backlinks", h.Backlinks)
	r.Get("/documents/{guid}/assets/{name}", ah.ServeDocumentAsset)

	// Search.
	r.Get("/search", h.Search)

	// Options.
	r.Get("/options", h.GetOptions)
	r.Put("/options", h.SaveOptions)

	// Stateless conversion.
	r.Post("/convert/clipboard", h.ConvertClipboard)

	// Editor sessions.
	r.Get("/sessions", sh.List)
	r.Post("/sessions", sh.Open)
	r.Route("/sessions/{guid}", func(r chi.Router) {
		r.Get("/", sh.Get)
		r.Delete("/", sh.Close)
		r.Get("/content", sh.Load)
		r.Put("/content", sh.Save)
		r.Post("/host-save", sh.HostSave)
		r.Post("/modified", sh.MarkModified)
		r.Post("/query-modified", sh.QueryModified)
		r.Post("/plain-paste", sh.PlainPaste)
		r.Post("/paste", sh.Paste)
		r.Post("/images", sh.InsertImage)
		r.Post("/ctrl", sh.RecordCtrl)
		r.Post("/links", sh.RouteLink)
		r.Post("/assets", ah.Upload)
		r.Get("/assets/{name}", ah.ServeSessionAsset)
	})

	// SSE endpoint (protected by same auth middleware).
	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
