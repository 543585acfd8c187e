package api

import (
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/options"
	"github.com/starford/mdbridge/internal/session"
)

const maxBodyBytes = 10 << 20

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Title    string `json:"title" example:"Shopping"`
	Markdown string `json:"markdown" example:"# Shopping\n- milk" validate:"required"`
}

// SaveMarkdownRequest is the request body for saving Markdown.
type SaveMarkdownRequest struct {
	Markdown string `json:"markdown" example:"# Updated\nContent"`
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.DocumentMetadata `json:"documents" validate:"required"`
	Total     int                       `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// OpenSessionRequest opens an editor session.
type OpenSessionRequest struct {
	GUID string `json:"guid" example:"6f1c..." validate:"required"`
}

// SessionInfo is the session state response type.
type SessionInfo = session.Info

// ContentResponse carries the Markdown of a session or a conversion.
type ContentResponse struct {
	Markdown string `json:"markdown"`
}

// SaveResponse reports a save.
type SaveResponse struct {
	Saved    bool   `json:"saved"`
	Markdown string `json:"markdown,omitempty"`
	Assets   int    `json:"assets"`
}

// PasteRequest carries a clipboard HTML fragment.
type PasteRequest struct {
	HTML string `json:"html"`
}

// PasteResponse is the converted fragment. Handled is false when the
// editor should paste the plain text itself.
type PasteResponse struct {
	Markdown string `json:"markdown"`
	Handled  bool   `json:"handled"`
}

// PlainPasteRequest sets plain paste mode; a missing Enabled toggles it.
type PlainPasteRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// FlagResponse carries a single boolean state.
type FlagResponse struct {
	Value bool `json:"value"`
}

// ImageRequest inserts the image at Path.
type ImageRequest struct {
	Path string `json:"path" example:"/tmp/capture.png" validate:"required"`
}

// ImageResponse is the Markdown reference to insert.
type ImageResponse struct {
	Markdown string `json:"markdown" example:"![](index_files/capture.png)"`
}

// LinkRequest asks how a clicked link is handled.
type LinkRequest struct {
	Href string `json:"href" validate:"required"`
}

// LinkResponse is the routing decision.
type LinkResponse struct {
	Action links.Action `json:"action"`
	Target links.Target `json:"target"`
}

// OptionsResponse wraps the settings and the toolbar layout they select.
type OptionsResponse struct {
	Settings options.Settings `json:"settings"`
	Toolbar  []string         `json:"toolbar"`
	Changed  []string         `json:"changed,omitempty"`
}
