// Package options holds the editor option settings and their persistence.
package options

import (
	"context"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mdbridge/internal/apperr"
)

// Toolbar styles.
const (
	ToolbarDefault = "default"
	ToolbarLite    = "lite"
)

// Option keys as stored in the option table.
const (
	KeyEditToolbarButton = "EditToolbarButton"
	KeyEditToolbarTheme  = "EditToolbarTheme"
	KeyEditEditorTheme   = "EditEditorTheme"
	KeyEditPreviewTheme  = "EditPreviewTheme"
	KeyEmojiSupport      = "EmojiSupport"
	KeyHrefInBrowser     = "HrefInBrowser"
	KeyKeymapMode        = "KeymapMode"
)

// Settings is the flat option record shown in the options dialog.
type Settings struct {
	EditToolbarButton string `json:"EditToolbarButton"`
	EditToolbarTheme  string `json:"EditToolbarTheme"`
	EditEditorTheme   string `json:"EditEditorTheme"`
	EditPreviewTheme  string `json:"EditPreviewTheme"`
	EmojiSupport      string `json:"EmojiSupport"`
	HrefInBrowser     string `json:"HrefInBrowser"`
	KeymapMode        string `json:"KeymapMode"`
}

// Defaults returns the settings used for keys that were never stored.
func Defaults() Settings {
	return Settings{
		EditToolbarButton: ToolbarDefault,
		EditToolbarTheme:  "default",
		EditEditorTheme:   "default",
		EditPreviewTheme:  "default",
		EmojiSupport:      "1",
		HrefInBrowser:     "0",
		KeymapMode:        "default",
	}
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.EditToolbarButton, validation.Required, validation.In(ToolbarDefault, ToolbarLite)),
		validation.Field(&s.EditToolbarTheme, validation.Required),
		validation.Field(&s.EditEditorTheme, validation.Required),
		validation.Field(&s.EditPreviewTheme, validation.Required),
		validation.Field(&s.EmojiSupport, validation.Required, validation.In("0", "1")),
		validation.Field(&s.HrefInBrowser, validation.Required, validation.In("0", "1")),
		validation.Field(&s.KeymapMode, validation.Required, validation.In("default", "vim", "sublime", "emacs")),
	)
}

// EmojiEnabled reports whether emoji rendering is on.
func (s Settings) EmojiEnabled() bool { return s.EmojiSupport == "1" }

// OpenLinksInBrowser reports whether external links go to the browser.
func (s Settings) OpenLinksInBrowser() bool { return s.HrefInBrowser == "1" }

// fields lists the settings as key/pointer pairs in a stable order.
func (s *Settings) fields() []struct {
	key string
	val *string
} {
	return []struct {
		key string
		val *string
	}{
		{KeyEditToolbarButton, &s.EditToolbarButton},
		{KeyEditToolbarTheme, &s.EditToolbarTheme},
		{KeyEditEditorTheme, &s.EditEditorTheme},
		{KeyEditPreviewTheme, &s.EditPreviewTheme},
		{KeyEmojiSupport, &s.EmojiSupport},
		{KeyHrefInBrowser, &s.HrefInBrowser},
		{KeyKeymapMode, &s.KeymapMode},
	}
}

// Diff returns the keys whose values differ between prev and next, in field
// order.
func Diff(prev, next Settings) []string {
	var changed []string
	o, n := prev.fields(), next.fields()
	for i := range o {
		if *o[i].val != *n[i].val {
			changed = append(changed, o[i].key)
		}
	}
	return changed
}

var (
	liteButtons = []string{
		"saveIcon", "|",
		"bold", "italic", "|",
		"link", "quote", "code", "imageIcon", "|",
		"list-ol", "list-ul", "h1", "hr", "|",
		"undo", "redo", "||",
		"outlineIcon", "counterIcon", "optionsIcon", "help", "info",
	}
	defaultButtons = []string{
		"saveIcon", "|",
		"undo", "redo", "|",
		"bold", "del", "italic", "quote", "ucwords", "uppercase", "lowercase", "|",
		"h1", "h2", "h3", "|",
		"list-ul", "list-ol", "hr", "|",
		"plainPasteIcon", "link", "reference-link", "imageIcon", "code", "preformatted-text", "code-block", "table", "datetime", "emoji", "html-entities", "pagebreak", "|",
		"goto-line", "watch", "preview", "clear", "search", "||",
		"outlineIcon", "counterIcon", "optionsIcon", "help", "info",
	}
)

// ToolbarButtons returns the toolbar layout for style. Unknown styles get
// the default layout.
func ToolbarButtons(style string) []string {
	src := defaultButtons
	if style == ToolbarLite {
		src = liteButtons
	}
	return append([]string(nil), src...)
}

// KV is the key/value table the settings are persisted in.
type KV interface {
	GetOption(ctx context.Context, key string) (string, bool, error)
	SetOption(ctx context.Context, key, value string) error
}

// Store caches the settings on top of a KV table.
type Store struct {
	kv KV

	mu     sync.Mutex
	cached *Settings
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Get returns the current settings. Keys that are missing or empty take
// their default value. The first successful read is cached.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}
	out := Defaults()
	for _, f := range out.fields() {
		v, ok, err := s.kv.GetOption(ctx, f.key)
		if err != nil {
			return Settings{}, fmt.Errorf("options: get %s: %w", f.key, err)
		}
		if ok && v != "" {
			*f.val = v
		}
	}
	s.cached = &out
	return out, nil
}

// Save validates and persists next, returning the keys that changed.
func (s *Store) Save(ctx context.Context, next Settings) ([]string, error) {
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("options: %w: %w", apperr.ErrInvalidInput, err)
	}
	prev, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range next.fields() {
		if err := s.kv.SetOption(ctx, f.key, *f.val); err != nil {
			s.cached = nil
			return nil, fmt.Errorf("options: set %s: %w", f.key, err)
		}
	}
	s.cached = &next
	return Diff(prev, next), nil
}
