// Package asset maps image locators to collision-free files inside a
// workspace's asset folder.
package asset

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/starford/mdbridge/internal/host"
)

// DirName is the asset folder name inside a workspace. Markdown references
// into the folder are relative to the workspace and start with DirName + "/".
const DirName = "index_files"

const (
	relPrefix     = DirName + "/"
	fileURIScheme = "file://"
	maxStampTries = 1000
)

// Ref is the result of resolving one locator.
type Ref struct {
	// Locator is the locator as written in the Markdown text.
	Locator string `json:"locator"`
	// Name is the canonical asset name; empty when the source was missing.
	Name string `json:"name,omitempty"`
	// Path is the locator to write back: index_files/<Name>, or Locator when
	// the source did not exist.
	Path string `json:"path"`
	// Tag is the marker <img> tag for the asset, empty when the source did
	// not exist.
	Tag string `json:"-"`
	// Copied is true when bytes were copied into the asset folder.
	Copied bool `json:"copied"`
}

// Found reports whether the locator pointed at an existing file.
func (r Ref) Found() bool {
	return r.Tag != ""
}

// Store resolves locators against one asset folder. Resolutions are
// serialized; the folder is append-only for the store's lifetime.
type Store struct {
	dirs   host.DirectoryOps
	folder string // absolute, forward slashes, trailing slash
	now    func() time.Time

	mu        sync.Mutex
	lastStamp int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for collision stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store for the asset folder at folder (absolute path).
func NewStore(dirs host.DirectoryOps, folder string, opts ...Option) *Store {
	folder = strings.ReplaceAll(folder, `\`, "/")
	if !strings.HasSuffix(folder, "/") {
		folder += "/"
	}
	s := &Store{dirs: dirs, folder: folder, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Folder returns the absolute asset folder path with a trailing slash.
func (s *Store) Folder() string {
	return s.folder
}

// Resolve maps locator to a path inside the asset folder, copying the source
// bytes when they live elsewhere. A locator whose source does not exist is
// returned unchanged with an empty Tag and no error.
func (s *Store) Resolve(ctx context.Context, locator string) (Ref, error) {
	ref := Ref{Locator: locator, Path: locator}

	normalized := strings.ReplaceAll(locator, `\`, "/")

	var source, base string
	if strings.HasPrefix(normalized, relPrefix) {
		base = lastSegment(normalized)
		source = s.folder + base
	} else {
		source = fromFileURI(normalized)
		base = lastSegment(strings.ReplaceAll(source, `\`, "/"))
	}
	if base == "" {
		return ref, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.dirs.PathExists(ctx, source)
	if err != nil {
		return ref, fmt.Errorf("asset: check source %s: %w", source, err)
	}
	if !exists {
		return ref, nil
	}

	name := CanonicalName(base)
	target := s.folder + name
	if target != source {
		taken, err := s.dirs.PathExists(ctx, target)
		if err != nil {
			return ref, fmt.Errorf("asset: check target %s: %w", target, err)
		}
		if taken {
			name, err = s.freeStampedName(ctx, base)
			if err != nil {
				return ref, err
			}
			target = s.folder + name
		}
		if err := s.dirs.CopyFile(ctx, source, target); err != nil {
			return ref, fmt.Errorf("asset: copy %s: %w", base, err)
		}
		ref.Copied = true
	}

	ref.Name = name
	ref.Path = relPrefix + name
	ref.Tag = `<img src="` + html.EscapeString(target) + `">`
	return ref, nil
}

// freeStampedName returns a stamped name for base that is not taken yet.
// Stamps are milliseconds, strictly increasing within the store.
func (s *Store) freeStampedName(ctx context.Context, base string) (string, error) {
	for range maxStampTries {
		stamp := s.now().UnixMilli()
		if stamp <= s.lastStamp {
			stamp = s.lastStamp + 1
		}
		s.lastStamp = stamp

		name := StampedName(base, stamp)
		taken, err := s.dirs.PathExists(ctx, s.folder+name)
		if err != nil {
			return "", fmt.Errorf("asset: check target %s: %w", name, err)
		}
		if !taken {
			return name, nil
		}
	}
	return "", fmt.Errorf("asset: no free name for %s", base)
}

// fromFileURI strips a file:// scheme from locator. Drive-letter paths
// (file:///C:/x) keep their drive.
func fromFileURI(locator string) string {
	if !strings.HasPrefix(strings.ToLower(locator), fileURIScheme) {
		return locator
	}
	p := locator[len(fileURIScheme):]
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p
}

func lastSegment(p string) string {
	return p[strings.LastIndexByte(p, '/')+1:]
}
