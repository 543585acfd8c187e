package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/host"
	"github.com/starford/mdbridge/internal/index"
	"github.com/starford/mdbridge/internal/links"
	"github.com/starford/mdbridge/internal/mcpserver"
	"github.com/starford/mdbridge/internal/options"
	"github.com/starford/mdbridge/internal/session"
	"github.com/starford/mdbridge/internal/storage"
	"github.com/starford/mdbridge/internal/transcode"
)

// Components is the wired document stack shared by the server and the
// command line tools.
type Components struct {
	Store    *storage.FS
	DB       *index.DB
	Docs     *docservice.Service
	Sessions *session.Manager
	Options  *options.Store
}

// NewLogger returns the JSON logger at the configured level.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Open wires storage, the index and the services for cfg and runs the
// initial index sync. Close releases the index.
func Open(cfg *Config, logger *slog.Logger, opts ...docservice.Option) (*Components, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	ext := transcode.NewExtractor(cfg.Editor.InternalLinkPrefixes)
	if err := index.Sync(db, store, ext, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	local := host.NewLocal()
	svc := docservice.NewService(store, db, ext, local, cfg.Workspace.TempRoot, opts...)
	mgr := session.NewManager(session.Config{
		TempRoot:       cfg.Workspace.TempRoot,
		CleanupOnClose: cfg.Workspace.CleanupOnClose,
		SaveKeyWindow:  cfg.Editor.SaveKeyWindow,
	}, local, local, store, svc,
		session.WithExtractor(ext),
		session.WithLinkRouter(links.NewRouter(svc)),
		session.WithLogger(logger),
	)

	return &Components{
		Store:    store,
		DB:       db,
		Docs:     svc,
		Sessions: mgr,
		Options:  options.NewStore(db),
	}, nil
}

// MCP returns an MCP server over the document service. Imported assets are
// staged under the workspace temp root.
func (c *Components) MCP(cfg *Config) *mcpserver.Server {
	return mcpserver.New(c.Docs, filepath.Join(cfg.Workspace.TempRoot, ".imports"))
}

// Close closes every session and the index.
func (c *Components) Close() error {
	return errors.Join(c.Sessions.CloseAll(), c.DB.Close())
}
