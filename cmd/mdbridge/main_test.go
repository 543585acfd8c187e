package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &bytes.Buffer{}
	cmd.Reader = strings.NewReader(stdin)
	err := cmd.Run(context.Background(), append([]string{"mdbridge"}, args...))
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("vault:\n  path: %s\nsqlite:\n  path: %s\nworkspace:\n  temp_root: %s\n",
		filepath.Join(dir, "vault"), filepath.Join(dir, "index.db"), filepath.Join(dir, "tmp"))
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConvert_Stdin(t *testing.T) {
	out, err := runCLI(t, "<div>a</div><div>b</div>", "convert")
	if err != nil {
		t.Fatal(err)
	}
	if out != "a\nb\n" {
		t.Errorf("out = %q", out)
	}
}

func TestConvert_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "frag.html")
	if err := os.WriteFile(p, []byte("<b>bold</b>"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, "", "convert", p)
	if err != nil {
		t.Fatal(err)
	}
	if out != "**bold**\n" {
		t.Errorf("out = %q", out)
	}
}

func TestConvert_Clipboard(t *testing.T) {
	prev := readClipboard
	readClipboard = func() (string, error) { return "<i>hi</i>", nil }
	t.Cleanup(func() { readClipboard = prev })

	out, err := runCLI(t, "", "convert", "--clipboard")
	if err != nil {
		t.Fatal(err)
	}
	if out != "_hi_\n" {
		t.Errorf("out = %q", out)
	}
}

func TestImportExport(t *testing.T) {
	cfg := writeConfig(t)
	src := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(src, []byte("# Plan\n\nship it\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "--config", cfg, "import", src)
	if err != nil {
		t.Fatal(err)
	}
	guid, title, ok := strings.Cut(strings.TrimSpace(out), "\t")
	if !ok || guid == "" {
		t.Fatalf("import output = %q", out)
	}
	if title != "Plan" {
		t.Errorf("title = %q, want Plan", title)
	}

	md, err := runCLI(t, "", "--config", cfg, "export", guid)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "ship it") {
		t.Errorf("export = %q", md)
	}
}

func TestExport_Errors(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := runCLI(t, "", "--config", cfg, "export"); err == nil {
		t.Error("expected error without guid")
	}
	if _, err := runCLI(t, "", "--config", cfg, "export", "missing"); err == nil {
		t.Error("expected error for unknown document")
	}
}

func TestImport_MissingFile(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := runCLI(t, "", "--config", cfg, "import", filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
