package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/FocuswithJustin/versefinder/core/canon"
	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/core/sqlite"
	"github.com/FocuswithJustin/versefinder/internal/api"
	"github.com/FocuswithJustin/versefinder/internal/cache"
	"github.com/FocuswithJustin/versefinder/internal/history"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

// ParseCmd resolves one transcript.
type ParseCmd struct {
	Transcript []string `arg:"" help:"Transcript to resolve (quoted or as separate words)"`
	JSON       bool     `name:"json" help:"Print the result as JSON"`
	Record     bool     `help:"Store the result in the search history"`
}

func (c *ParseCmd) Run(a *app) error {
	ctx := context.Background()
	transcript := strings.Join(c.Transcript, " ")

	start := time.Now()
	r := a.parser.Parse(transcript)
	logging.ParseEvent(ctx, "cli", time.Since(start), r.LogFields())

	res := api.NewParseResult(r, false)
	if c.Record {
		store, err := a.openHistory(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		e, err := store.Record(ctx, r)
		if err != nil {
			return err
		}
		res.HistoryID = e.ID
	}

	if c.JSON {
		return a.writeJSON(res)
	}
	printResult(a, res)
	return nil
}

func printResult(a *app, res api.ParseResult) {
	if !res.Found() {
		a.printf("No reference found (language %s, confidence %s)\n", res.Language, res.Confidence)
		return
	}
	a.printf("Reference:  %s\n", res.Display)
	a.printf("Korean:     %s\n", koreanDisplay(res.ParsedReference))
	a.printf("Canonical:  %s\n", res.Ref)
	a.printf("Language:   %s\n", res.Language)
	a.printf("Confidence: %s\n", res.Confidence)
	if len(res.AlternativeBooks) > 0 {
		a.printf("Also:       %s\n", bookNames(res.AlternativeBooks))
	}
	if res.HistoryID != "" {
		a.printf("Recorded:   %s\n", res.HistoryID)
	}
}

// koreanDisplay renders the reference the way Korean bibles cite it,
// e.g. "요한복음 3장 16절".
func koreanDisplay(r refparse.ParsedReference) string {
	var sb strings.Builder
	sb.WriteString(r.Book.NativeName)
	if r.Chapter != nil {
		unit := "장"
		if r.Book.ID == "psalms" {
			unit = "편"
		}
		fmt.Fprintf(&sb, " %d%s", *r.Chapter, unit)
		if r.Verse != nil {
			fmt.Fprintf(&sb, " %d절", *r.Verse)
		}
	}
	return sb.String()
}

func bookNames(books []canon.Book) string {
	names := make([]string, len(books))
	for i, b := range books {
		names[i] = b.Name
	}
	return strings.Join(names, ", ")
}

// MatchCmd resolves a book name on its own.
type MatchCmd struct {
	Candidate []string `arg:"" help:"Book name, abbreviation or misspelling"`
	JSON      bool     `name:"json" help:"Print the match as JSON"`
}

type matchOutput struct {
	Candidate    string              `json:"candidate"`
	Book         *canon.Book         `json:"book,omitempty"`
	Stage        refparse.MatchStage `json:"stage"`
	Confidence   refparse.Confidence `json:"confidence"`
	Alias        string              `json:"alias,omitempty"`
	Distance     int                 `json:"distance"`
	Alternatives []canon.Book        `json:"alternatives"`
}

func (c *MatchCmd) Run(a *app) error {
	candidate := strings.Join(c.Candidate, " ")
	m := a.parser.MatchBook(candidate)
	out := matchOutput{
		Candidate:    candidate,
		Book:         m.Book,
		Stage:        m.Stage,
		Confidence:   m.Confidence,
		Alias:        m.Alias,
		Distance:     m.Distance,
		Alternatives: append([]canon.Book{}, m.Alternatives...),
	}
	if c.JSON {
		return a.writeJSON(out)
	}

	if m.Book == nil {
		a.printf("No book matches %q\n", candidate)
		return nil
	}
	a.printf("Book:       %s (%s)\n", m.Book.Name, m.Book.NativeName)
	a.printf("Stage:      %s\n", m.Stage)
	a.printf("Alias:      %s\n", m.Alias)
	if m.Stage == refparse.StageFuzzy {
		a.printf("Distance:   %d\n", m.Distance)
	}
	a.printf("Confidence: %s\n", m.Confidence)
	if len(m.Alternatives) > 0 {
		a.printf("Also:       %s\n", bookNames(m.Alternatives))
	}
	return nil
}

// BooksCmd lists the catalog.
type BooksCmd struct {
	Testament string `help:"Filter by testament" enum:"all,OT,NT" default:"all"`
	JSON      bool   `name:"json" help:"Print the books as JSON"`
}

func (c *BooksCmd) Run(a *app) error {
	var books []canon.Book
	for _, b := range a.parser.Catalog().Books() {
		if c.Testament == "all" || string(b.Testament) == c.Testament {
			books = append(books, b)
		}
	}
	if c.JSON {
		return a.writeJSON(books)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tKOREAN\tABBR\tCHAPTERS")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", b.Order, b.ID, b.Name, b.NativeName, b.Abbrev, b.Chapters)
	}
	return tw.Flush()
}

// ServeCmd starts the API server.
type ServeCmd struct {
	Port      int  `help:"HTTP server port (overrides config)"`
	NoHistory bool `name:"no-history" help:"Disable the search history store"`
}

func (c *ServeCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := api.ConfigFrom(a.cfg.Server)
	if c.Port != 0 {
		if c.Port < 1 || c.Port > 65535 {
			return errors.NewValidation("port", "must be between 1 and 65535")
		}
		cfg.Port = c.Port
	}

	var store *history.Store
	if a.cfg.History.Enabled && !c.NoHistory {
		var err error
		store, err = history.Open(ctx, a.cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		logging.Info("history enabled", "path", store.Path(), "driver", sqlite.DriverType())
	}

	s := api.New(api.Options{
		Config:  cfg,
		Parser:  cache.NewParseCache(a.parser, a.cfg.CacheConfig()),
		History: store,
		Version: version,
	})
	defer s.Close()
	return s.ListenAndServe(ctx)
}

// HistoryCmd groups the search history commands.
type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" help:"Show recent searches"`
	Show   HistoryShowCmd   `cmd:"" help:"Show one search"`
	Export HistoryExportCmd `cmd:"" help:"Write all searches to an xz-compressed JSON Lines file"`
	Import HistoryImportCmd `cmd:"" help:"Load searches from an export file"`
	Clear  HistoryClearCmd  `cmd:"" help:"Delete every search"`
}

// HistoryListCmd lists recent searches, newest first.
type HistoryListCmd struct {
	Limit int  `short:"n" help:"Number of searches to show" default:"20"`
	JSON  bool `name:"json" help:"Print the searches as JSON"`
}

func (c *HistoryListCmd) Run(a *app) error {
	ctx := context.Background()
	store, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.JSON {
		return a.writeJSON(entries)
	}
	if len(entries) == 0 {
		a.printf("No searches recorded\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tID\tREF\tCONFIDENCE\tTRANSCRIPT")
	for _, e := range entries {
		ref := e.Ref
		if ref == "" {
			ref = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.ID, ref, e.Confidence, e.Transcript)
	}
	return tw.Flush()
}

// HistoryShowCmd prints one search.
type HistoryShowCmd struct {
	ID   string `arg:"" help:"Search id"`
	JSON bool   `name:"json" help:"Print the search as JSON"`
}

func (c *HistoryShowCmd) Run(a *app) error {
	ctx := context.Background()
	store, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(ctx, c.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return a.writeJSON(e)
	}

	a.printf("ID:         %s\n", e.ID)
	a.printf("Time:       %s\n", e.CreatedAt.Local().Format(time.RFC3339))
	a.printf("Transcript: %s\n", e.Transcript)
	a.printf("Language:   %s\n", e.Language)
	a.printf("Confidence: %s\n", e.Confidence)
	b, ref, err := e.Reference()
	if err != nil {
		return err
	}
	if ref == nil {
		a.printf("Reference:  none\n")
		return nil
	}
	a.printf("Reference:  %s (%s)\n", ref.Display(b), ref)
	if len(e.Alternatives) > 0 {
		a.printf("Also:       %s\n", strings.Join(e.Alternatives, ", "))
	}
	return nil
}

// HistoryExportCmd writes an export archive.
type HistoryExportCmd struct {
	Out string `short:"o" help:"Output file" default:"history.jsonl.xz" type:"path"`
}

func (c *HistoryExportCmd) Run(a *app) error {
	ctx := context.Background()
	store, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := os.Create(c.Out)
	if err != nil {
		return errors.NewIO("create", c.Out, err)
	}
	n, err := store.Export(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.NewIO("close", c.Out, cerr)
	}
	if err != nil {
		os.Remove(c.Out)
		return err
	}
	a.printf("Exported %d searches to %s\n", n, c.Out)
	return nil
}

// HistoryImportCmd loads an export archive.
type HistoryImportCmd struct {
	File string `arg:"" help:"Export file to load" type:"existingfile"`
}

func (c *HistoryImportCmd) Run(a *app) error {
	ctx := context.Background()
	f, err := os.Open(c.File)
	if err != nil {
		return errors.NewIO("open", c.File, err)
	}
	defer f.Close()

	entries, err := history.ReadExport(f)
	if err != nil {
		return err
	}

	store, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	added, err := store.Import(ctx, entries)
	if err != nil {
		return err
	}
	a.printf("Imported %d of %d searches from %s\n", added, len(entries), c.File)
	return nil
}

// HistoryClearCmd deletes the history.
type HistoryClearCmd struct {
	Yes bool `short:"y" help:"Confirm deleting every search"`
}

func (c *HistoryClearCmd) Run(a *app) error {
	if !c.Yes {
		return errors.NewValidation("yes", "refusing to clear history without --yes")
	}
	ctx := context.Background()
	store, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	a.printf("Removed %d searches\n", n)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	info := sqlite.GetInfo()
	a.printf("versefinder version %s\n", version)
	a.printf("sqlite driver: %s (%s)\n", info.Package, info.DriverType)
	a.printf("books: %d\n", a.parser.Catalog().Len())
	return nil
}
