package host

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Local implements DirectoryOps and TextIO on the local filesystem.
type Local struct{}

// NewLocal returns a Local host.
func NewLocal() *Local {
	return &Local{}
}

// CreateDirectory implements DirectoryOps.
func (l *Local) CreateDirectory(_ context.Context, path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("host: create directory %s: %w", path, err)
	}
	return nil
}

// PathExists implements DirectoryOps.
func (l *Local) PathExists(_ context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("host: stat %s: %w", path, err)
}

// RemoveDirectory implements DirectoryOps.
func (l *Local) RemoveDirectory(_ context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("host: remove directory %s: %w", path, err)
	}
	return nil
}

// CopyFile implements DirectoryOps.
func (l *Local) CopyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("host: mkdir for copy: %w", err)
	}
	if err := copy.Copy(src, dst, copy.Options{Sync: true}); err != nil {
		return fmt.Errorf("host: copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// LoadTextFromFile implements TextIO. A leading UTF-8 BOM is dropped.
func (l *Local) LoadTextFromFile(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("host: load text %s: %w", path, err)
	}
	return strings.TrimPrefix(string(data), string(utf8BOM)), nil
}

// SaveTextToFile implements TextIO.
func (l *Local) SaveTextToFile(_ context.Context, path, text, encoding string) error {
	var data []byte
	switch strings.ToLower(encoding) {
	case "", EncodingUTF8:
		data = []byte(text)
	case EncodingUTF8BOM:
		data = append(append([]byte{}, utf8BOM...), text...)
	default:
		return fmt.Errorf("host: unsupported encoding %q", encoding)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("host: mkdir for save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("host: save text %s: %w", path, err)
	}
	return nil
}

// FileImage is an ImageSource that returns a fixed path, e.g. a file picked by
// the user or written by a capture tool.
type FileImage string

// ImagePath implements ImageSource.
func (f FileImage) ImagePath(context.Context) (string, error) {
	return string(f), nil
}

var (
	_ DirectoryOps = (*Local)(nil)
	_ TextIO       = (*Local)(nil)
	_ ImageSource  = FileImage("")
)
