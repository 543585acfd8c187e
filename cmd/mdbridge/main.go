package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdbridge/internal"
	"github.com/starford/mdbridge/internal/transcode"
	pkgconfig "github.com/starford/mdbridge/pkg/config"
)

// readClipboard returns the clipboard text.
var readClipboard = clipboard.ReadAll

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// openTool wires the document stack for a one-shot command. Logs go to
// stderr so stdout carries only the command output.
func openTool(cmd *cli.Command) (*internal.Config, *internal.Components, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	c, err := internal.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) (err error) {
	cfg, c, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, c.Close()) }()

	return c.MCP(cfg).ServeStdio()
}

func convert(_ context.Context, cmd *cli.Command) error {
	var fragment string
	switch {
	case cmd.Bool("clipboard"):
		text, err := readClipboard()
		if err != nil {
			return fmt.Errorf("read clipboard: %w", err)
		}
		fragment = text
	case cmd.Args().Len() > 0 && cmd.Args().First() != "-":
		data, err := os.ReadFile(cmd.Args().First())
		if err != nil {
			return fmt.Errorf("read html: %w", err)
		}
		fragment = string(data)
	default:
		data, err := io.ReadAll(cmd.Root().Reader)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		fragment = string(data)
	}

	out, err := transcode.NewClipboardConverter().Convert(fragment)
	if err != nil {
		return err
	}
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(cmd.Root().Writer, out)
	return err
}

func export(ctx context.Context, cmd *cli.Command) (err error) {
	guid := cmd.Args().First()
	if guid == "" {
		return errors.New("export: document guid is required")
	}
	_, c, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, c.Close()) }()

	doc, err := c.Docs.GetDocument(ctx, guid)
	if err != nil {
		return fmt.Errorf("export %s: %w", guid, err)
	}
	_, err = io.WriteString(cmd.Root().Writer, doc.Markdown)
	return err
}

func importDocument(ctx context.Context, cmd *cli.Command) (err error) {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("import: markdown file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	_, c, err := openTool(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, c.Close()) }()

	doc, err := c.Docs.CreateDocument(ctx, cmd.String("title"), string(data))
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "%s\t%s\n", doc.GUID, doc.Title)
	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:   "mdbridge",
		Usage:  "Markdown editing bridge for HTML note documents",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the SSE stream and the vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the document tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "convert",
				Usage:     "Convert an HTML fragment to Markdown with the paste rules",
				ArgsUsage: "[file|-]",
				Action:    convert,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clipboard",
						Usage: "Read the fragment from the system clipboard",
					},
				},
			},
			{
				Name:      "export",
				Usage:     "Print a document as Markdown",
				ArgsUsage: "<guid>",
				Action:    export,
			},
			{
				Name:      "import",
				Usage:     "Create a document from a Markdown file",
				ArgsUsage: "<file>",
				Action:    importDocument,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title; defaults to the first heading",
					},
				},
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
