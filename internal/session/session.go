// Package session keeps the state of one open editor per document: its
// temp workspace, asset store, modified flag, paste mode and the save-key
// timing used to tell user saves from host autosaves.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/models"
	"github.com/starford/mdbridge/internal/transcode"
	"github.com/starford/mdbridge/internal/workspace"
)

// Committer persists a serialized document and reports the save.
type Committer interface {
	Commit(ctx context.Context, doc models.Document, html, tempIndexPath string) error
	NotifySaved(guid string)
}

// Session is one open editor.
type Session struct {
	doc    models.Document
	ws     *workspace.Workspace
	assets *asset.Store
	ser    *transcode.Serializer
	m      *Manager

	mu         sync.Mutex
	modified   bool
	plainPaste bool
	ctrlAt     time.Time
}

// Info is a snapshot of the session state.
type Info struct {
	GUID       string              `json:"guid"`
	Title      string              `json:"title"`
	Workspace  workspace.Workspace `json:"workspace"`
	Modified   bool                `json:"modified"`
	PlainPaste bool                `json:"plain_paste"`
}

// GUID returns the document GUID.
func (s *Session) GUID() string {
	return s.doc.GUID
}

// Workspace returns the session workspace.
func (s *Session) Workspace() *workspace.Workspace {
	return s.ws
}

// Info returns a snapshot of the session state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		GUID:       s.doc.GUID,
		Title:      s.doc.Title,
		Workspace:  *s.ws,
		Modified:   s.modified,
		PlainPaste: s.plainPaste,
	}
}

// Load reads the workspace body and returns it as Markdown.
func (s *Session) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, err := s.m.text.LoadTextFromFile(ctx, s.ws.IndexPath)
	if err != nil {
		return "", fmt.Errorf("session: load %s: %w", s.doc.GUID, err)
	}
	md, err := s.m.ext.ExtractDocument(body, s.doc.GUID)
	if err != nil {
		return "", fmt.Errorf("session: load %s: %w", s.doc.GUID, err)
	}
	return md, nil
}

// Save serializes markdown, writes it to the workspace and commits it to
// the document store. The modified flag is cleared only on success.
func (s *Session) Save(ctx context.Context, markdown string) (transcode.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, markdown)
}

func (s *Session) save(ctx context.Context, markdown string) (transcode.SaveResult, error) {
	res, err := s.ser.Serialize(ctx, markdown)
	if err != nil {
		return transcode.SaveResult{}, fmt.Errorf("session: save %s: %w", s.doc.GUID, err)
	}
	if err := s.m.text.SaveTextToFile(ctx, s.ws.IndexPath, res.HTML, host.EncodingUTF8); err != nil {
		return transcode.SaveResult{}, fmt.Errorf("session: save %s: %w", s.doc.GUID, err)
	}
	if err := s.m.commit.Commit(ctx, s.doc, res.HTML, s.ws.IndexPath); err != nil {
		return transcode.SaveResult{}, fmt.Errorf("session: save %s: %w", s.doc.GUID, err)
	}
	s.modified = false
	s.m.commit.NotifySaved(s.doc.GUID)
	s.m.logger.Debug("session: saved",
		slog.String("guid", s.doc.GUID),
		slog.Int("assets", len(res.Assets)))
	return res, nil
}

// MarkModified records an editor change.
func (s *Session) MarkModified() {
	s.mu.Lock()
	s.modified = true
	s.mu.Unlock()
}

// Modified reports whether there are unsaved changes.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified
}

// QueryModified reports whether there are unsaved changes and clears the
// flag, so the host asks about them only once when closing the tab.
func (s *Session) QueryModified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.modified
	s.modified = false
	return m
}

// TogglePlainPaste flips plain paste mode and returns the new mode.
func (s *Session) TogglePlainPaste() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plainPaste = !s.plainPaste
	return s.plainPaste
}

// SetPlainPaste sets plain paste mode.
func (s *Session) SetPlainPaste(on bool) {
	s.mu.Lock()
	s.plainPaste = on
	s.mu.Unlock()
}

// Paste converts a clipboard HTML fragment to Markdown. It reports false
// when the editor should fall back to its plain-text paste: in plain paste
// mode, or when the fragment yields no text.
func (s *Session) Paste(fragment string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plainPaste {
		return "", false, nil
	}
	md, err := s.m.clip.Convert(fragment)
	if err != nil {
		return "", false, fmt.Errorf("session: paste: %w", err)
	}
	return md, md != "", nil
}

// InsertImage copies the image produced by src into the asset folder and
// returns the Markdown image reference to insert. An empty path from src
// yields "" and no error.
func (s *Session) InsertImage(ctx context.Context, src host.ImageSource) (string, error) {
	path, err := src.ImagePath(ctx)
	if err != nil {
		return "", fmt.Errorf("session: image source: %w", err)
	}
	if path == "" {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, err := s.assets.Resolve(ctx, path)
	if err != nil {
		return "", fmt.Errorf("session: insert image: %w", err)
	}
	if !ref.Found() {
		return "", fmt.Errorf("session: insert image %s: %w", path, apperr.ErrNotFound)
	}
	return "![](" + ref.Path + ")", nil
}

// RecordCtrl records a Ctrl key press in the editor.
func (s *Session) RecordCtrl() {
	s.mu.Lock()
	s.ctrlAt = s.m.now()
	s.mu.Unlock()
}

// HostSave handles a save request from the host. Hosts that autosave on tab
// switches send the same request as the user's Ctrl+S, so the document is
// only saved when it is modified and a Ctrl press was recorded within the
// save-key window. A recorded press is consumed either way. It reports
// whether a save happened.
func (s *Session) HostSave(ctx context.Context, markdown string) (bool, transcode.SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.modified || s.ctrlAt.IsZero() {
		return false, transcode.SaveResult{}, nil
	}
	elapsed := s.m.now().Sub(s.ctrlAt)
	s.ctrlAt = time.Time{}
	if elapsed >= s.m.cfg.SaveKeyWindow {
		return false, transcode.SaveResult{}, nil
	}
	res, err := s.save(ctx, markdown)
	if err != nil {
		return false, transcode.SaveResult{}, err
	}
	return true, res, nil
}

// RouteLink decides how a clicked link is handled.
func (s *Session) RouteLink(ctx context.Context, href string, inBrowser bool) (links.Action, links.Target) {
	if s.m.router == nil {
		if inBrowser {
			return links.ActionBrowser, links.Target{}
		}
		return links.ActionDefault, links.Target{}
	}
	return s.m.router.Route(ctx, href, inBrowser)
}
