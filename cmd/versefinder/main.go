// Command versefinder resolves spoken or typed Bible references and serves
// the resolver over HTTP and websocket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/versefinder/core/canon"
	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/config"
	"github.com/FocuswithJustin/versefinder/internal/history"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

const version = "0.4.0"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Path to YAML config file" type:"path" env:"VERSEFINDER_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (json, text)"`
	HistoryDB string `name:"history-db" help:"History database path (overrides config)" type:"path"`
}

// CLI defines the command-line interface for versefinder.
type CLI struct {
	Globals

	Parse   ParseCmd   `cmd:"" help:"Resolve a transcript to a book, chapter and verse"`
	Match   MatchCmd   `cmd:"" help:"Resolve a book name and show how it matched"`
	Books   BooksCmd   `cmd:"" help:"List the books of the canon"`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP and websocket server"`
	History HistoryCmd `cmd:"" help:"Search history operations"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// app is the runtime state bound into every command's Run method.
type app struct {
	out    io.Writer
	cfg    *config.Config
	parser *refparse.Parser
}

func newApp(g Globals, out io.Writer) (*app, io.Closer, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if g.HistoryDB != "" {
		cfg.History.Path = g.HistoryDB
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	lc := cfg.Logging()
	lc.Output = os.Stderr
	closer := logging.Setup(lc)

	parser := refparse.New(canon.Default(), refparse.WithAliases(cfg.Aliases))
	return &app{out: out, cfg: cfg, parser: parser}, closer, nil
}

func (a *app) openHistory(ctx context.Context) (*history.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, errors.NewValidation("history.enabled", "search history is disabled in the configuration")
	}
	return history.Open(ctx, a.cfg.History.Path)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func newParser(cli *CLI, stdout, stderr io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("versefinder"),
		kong.Description("Resolve Korean and English Bible references from speech transcripts"),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
}

// run parses args and executes the selected command.
func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	a, closer, err := newApp(cli.Globals, stdout)
	if err != nil {
		return err
	}
	defer closer.Close()

	return ctx.Run(a)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "versefinder:", err)
		os.Exit(1)
	}
}
