package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/remixer/internal/app"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/ops"
	"github.com/hpungsan/remixer/internal/remix"
	"github.com/hpungsan/remixer/internal/social"
	"github.com/hpungsan/remixer/internal/web"
)

// maxStdinBytes caps text piped to remix and saved save.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands. a may be nil
// when only help or version output is needed.
func newCLIApp(a *app.App) *cli.App {
	cliApp := &cli.App{
		Name:    "remixer",
		Usage:   "Turn posts, threads and PDFs into tweets and blog posts",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(a),
			resolveCmd(a),
			remixCmd(a),
			pdfCmd(a),
			savedCmd(a),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// serveCmd creates the serve command.
func serveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (overrides server.bind)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (overrides server.port)"},
		},
		Action: func(c *cli.Context) error {
			if err := a.Config.RequireCredentials(); err != nil {
				return outputError(err)
			}
			if bind := c.String("bind"); bind != "" {
				a.Config.Server.Bind = bind
			}
			if port := c.Int("port"); port > 0 {
				a.Config.Server.Port = port
			}

			srv := web.NewServer(a, Version)
			return web.Run(srv, a.Logger, a.Config.Server.ShutdownTimeout)
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a post, joining its thread",
		ArgsUsage: "<id|url>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "text", Usage: "Print only the resolved text"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one post id or URL is required"))
			}

			res, err := a.Resolver.Resolve(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if c.Bool("text") {
				_, err := fmt.Fprintln(c.App.Writer, res.Text)
				return err
			}
			return outputJSON(c.App.Writer, res)
		},
	}
}

// remixResult is the remix command output.
type remixResult struct {
	Result   string             `json:"result"`
	Parsed   *remix.Output      `json:"parsed"`
	Source   *social.Resolution `json:"source,omitempty"`
	SavedIDs []string           `json:"savedIds,omitempty"`
}

// remixCmd creates the remix command.
func remixCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "remix",
		Usage: "Remix text from stdin and/or a post into tweets or a blog post",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "tweets", Usage: "Output type: tweets|blog"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Post id or URL to resolve as source"},
			&cli.BoolFlag{Name: "save", Usage: "Store the parsed output as saved items"},
		},
		Action: func(c *cli.Context) error {
			outputType, err := remix.ParseOutputType(c.String("type"))
			if err != nil {
				return outputError(err)
			}

			var text string
			if stdinHasData() {
				text, err = readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			}

			var out remixResult
			postURL := c.String("url")
			if postURL != "" {
				res, err := a.Resolver.Resolve(c.Context, postURL)
				if err != nil {
					return outputError(err)
				}
				out.Source = res
				if text == "" {
					text = res.Text
				} else {
					text = res.Text + "\n\n" + text
				}
			}
			if text == "" {
				return outputError(errors.NewInvalidRequest("pipe text via stdin or pass --url"))
			}

			out.Result, err = a.Invoker.Remix(c.Context, text, outputType)
			if err != nil {
				return outputError(err)
			}
			out.Parsed = remix.Parse(out.Result, outputType)

			if c.Bool("save") {
				input := ops.SaveRemixInput{Output: out.Parsed}
				if postURL != "" {
					input.SourceURL = &postURL
				}
				saved, err := ops.SaveRemix(c.Context, a.Items, a.Config, input)
				if err != nil {
					return outputError(err)
				}
				out.SavedIDs = saved.IDs
			}

			return outputJSON(c.App.Writer, out)
		},
	}
}

// pdfCmd creates the pdf command.
func pdfCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "pdf",
		Usage:     "Extract the text of a PDF file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one PDF file is required"))
			}

			data, err := readFileLimited(c.Args().First(), int64(a.Config.Generation.MaxPDFBytes))
			if err != nil {
				return outputError(err)
			}

			text, err := a.Invoker.ExtractPDF(c.Context, base64.StdEncoding.EncodeToString(data))
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(c.App.Writer, text)
			return err
		},
	}
}

// savedCmd groups the saved item commands.
func savedCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "Manage saved items",
		Subcommands: []*cli.Command{
			savedListCmd(a),
			savedShowCmd(a),
			savedSaveCmd(a),
			savedDeleteCmd(a),
			savedExportCmd(a),
			savedImportCmd(a),
		},
	}
}

func savedListCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List saved items, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, a.Items, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func savedShowCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a saved item",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, a.Items, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func savedSaveCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save an item (reads content from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Value: "tweets", Usage: "Item kind: tweets|blog"},
			&cli.StringFlag{Name: "title", Usage: "Title (blog posts)"},
			&cli.BoolFlag{Name: "thread", Usage: "Item is part of a thread"},
			&cli.IntFlag{Name: "position", Usage: "1-based thread position"},
			&cli.StringFlag{Name: "source-url", Usage: "Post the item was remixed from"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("content must be piped via stdin"))
			}
			content, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			input := ops.SaveInput{
				Content:  content,
				IsThread: c.Bool("thread"),
				Kind:     c.String("kind"),
			}
			if c.IsSet("position") {
				pos := c.Int("position")
				input.ThreadPosition = &pos
			}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}
			if sourceURL := c.String("source-url"); sourceURL != "" {
				input.SourceURL = &sourceURL
			}

			output, err := ops.Save(c.Context, a.Items, a.Config, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func savedDeleteCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a saved item",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, a.Items, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func savedExportCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export saved items to JSONL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default: exports directory)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, a.Items, a.Config, ops.ExportInput{
				Path:       c.String("path"),
				ExportsDir: a.ExportsDir(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func savedImportCmd(a *app.App) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import saved items from JSONL",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, a.Items, a.Config, ops.ImportInput{
				Path:       c.Args().First(),
				Mode:       ops.ImportMode(c.String("mode")),
				ExportsDir: a.ExportsDir(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// Helper functions

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// readFileLimited reads path, refusing files larger than limit bytes.
func readFileLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("File", path)
		}
		return nil, errors.NewInvalidRequest(err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if limit > 0 && info.Size() > limit {
		return nil, errors.NewContentTooLarge(int(limit), int(info.Size()))
	}
	return io.ReadAll(f)
}
