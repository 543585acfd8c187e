package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/asset"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/transcode"
	"github.com/starford/mdbridge/internal/workspace"
)

// DefaultSaveKeyWindow is the longest gap between a Ctrl press and a host
// save request that still counts as a keyboard save.
const DefaultSaveKeyWindow = 800 * time.Millisecond

// Config holds the session settings.
type Config struct {
	// TempRoot is the folder the workspaces are created in.
	TempRoot string
	// CleanupOnClose removes the workspace when the session closes.
	CleanupOnClose bool
	// SaveKeyWindow bounds HostSave; zero means DefaultSaveKeyWindow.
	SaveKeyWindow time.Duration
}

// Manager owns the open sessions, at most one per document.
type Manager struct {
	cfg    Config
	dirs   host.DirectoryOps
	text   host.TextIO
	docs   host.DocumentStore
	commit Committer
	ext    *transcode.Extractor
	clip   *transcode.ClipboardConverter
	router *links.Router
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithExtractor sets the Markdown extractor used by Load.
func WithExtractor(ext *transcode.Extractor) Option {
	return func(m *Manager) {
		m.ext = ext
	}
}

// WithLinkRouter sets the router used by RouteLink.
func WithLinkRouter(r *links.Router) Option {
	return func(m *Manager) {
		m.router = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock overrides the clock used for the save-key window and asset
// stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager returns a Manager. docs materializes documents into
// workspaces and commit persists saves.
func NewManager(cfg Config, dirs host.DirectoryOps, text host.TextIO, docs host.DocumentStore, commit Committer, opts ...Option) *Manager {
	if cfg.SaveKeyWindow <= 0 {
		cfg.SaveKeyWindow = DefaultSaveKeyWindow
	}
	m := &Manager{
		cfg:      cfg,
		dirs:     dirs,
		text:     text,
		docs:     docs,
		commit:   commit,
		clip:     transcode.NewClipboardConverter(),
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ext == nil {
		m.ext = transcode.NewExtractor(nil)
	}
	return m
}

// Open returns the session for guid, opening a workspace for it if the
// document is not open yet.
func (m *Manager) Open(ctx context.Context, guid string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guid]; ok {
		return s, nil
	}

	doc, err := m.docs.Document(ctx, guid)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", guid, err)
	}
	ws, err := workspace.Open(ctx, m.dirs, m.docs, m.cfg.TempRoot, doc)
	if err != nil {
		return nil, err
	}
	assets := asset.NewStore(m.dirs, ws.AssetDir, asset.WithClock(m.now))
	s := &Session{
		doc:    doc,
		ws:     ws,
		assets: assets,
		ser:    transcode.NewSerializer(assets),
		m:      m,
	}
	m.sessions[guid] = s
	m.logger.Info("session: opened", slog.String("guid", guid), slog.String("dir", ws.Dir))
	return s, nil
}

// Get returns the open session for guid.
func (m *Manager) Get(guid string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guid]
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", guid, apperr.ErrNoSession)
	}
	return s, nil
}

// List returns the GUIDs of the open sessions in sorted order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for g := range m.sessions {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Close drops the session for guid and, when configured, removes its
// workspace. Unsaved changes are discarded.
func (m *Manager) Close(guid string) error {
	m.mu.Lock()
	s, ok := m.sessions[guid]
	delete(m.sessions, guid)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: close %s: %w", guid, apperr.ErrNoSession)
	}
	m.logger.Info("session: closed", slog.String("guid", guid))
	if m.cfg.CleanupOnClose {
		return s.ws.Discard(context.Background())
	}
	return nil
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() error {
	var errs []error
	for _, g := range m.List() {
		if err := m.Close(g); err != nil && !errors.Is(err, apperr.ErrNoSession) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
