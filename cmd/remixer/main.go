package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/app"
	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "resolve": true, "remix": true, "pdf": true,
	"saved": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___  ___ __ _ (_)_ _____ ___
  / _ \/ -_)  ' \/ /\ \ / -_) _|
 /_//_/\__/_/_/_/_//_\_\\__/_/

  Turn posts, threads and PDFs into tweets and blog posts

  Usage: remixer <command> [options]
         remixer serve
         remixer --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'remixer --help' for usage.\n")
		os.Exit(1)
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	cliMode := isCLIMode()
	if !cliMode {
		if err := cfg.RequireCredentials(); err != nil {
			fatal("%v", err)
		}
	}

	a, err := app.New(baseDir, cfg, app.Options{})
	if err != nil {
		fatal("failed to initialize: %v", err)
	}
	defer a.Close()

	if cliMode {
		if err := newCLIApp(a).Run(os.Args); err != nil {
			a.Close()
			fatal("%v", err)
		}
		return
	}

	// MCP server mode (default)
	warnUnknownDisabled(a)
	if err := mcp.Run(a, Version); err != nil {
		a.Close()
		fatal("%v", err)
	}
}

// warnUnknownDisabled logs disabled tool and type names that match nothing.
func warnUnknownDisabled(a *app.App) {
	if unknown := mcp.ValidateDisabledTools(a.Config.MCP.DisabledTools); len(unknown) > 0 {
		a.Logger.Warn("unknown tools in mcp.disabled_tools", zap.Strings("tools", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(a.Config.MCP.DisabledTypes); len(unknown) > 0 {
		a.Logger.Warn("unknown types in mcp.disabled_types", zap.Strings("types", unknown))
	}
}
