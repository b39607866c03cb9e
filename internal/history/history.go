// Package history records resolved searches in SQLite so clients can show
// and replay recent lookups.
package history

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/versefinder/core/canon"
	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/core/sqlite"
)

// MaxLimit caps the number of entries Recent returns.
const MaxLimit = 500

// Entry is one recorded search.
type Entry struct {
	ID           string              `json:"id"`
	Transcript   string              `json:"transcript"`
	Language     refparse.Language   `json:"language"`
	Ref          string              `json:"ref,omitempty"`
	Confidence   refparse.Confidence `json:"confidence"`
	Alternatives []string            `json:"alternatives,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// Reference decodes the stored canonical reference and looks its book up in
// the default catalog. The ref is nil for a search that resolved no book.
func (e Entry) Reference() (canon.Book, *canon.Ref, error) {
	if e.Ref == "" {
		return canon.Book{}, nil, nil
	}
	return canon.Default().Resolve(e.Ref)
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	transcript   TEXT NOT NULL,
	language     TEXT NOT NULL,
	ref          TEXT NOT NULL DEFAULT '',
	confidence   TEXT NOT NULL,
	alternatives TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS searches_created_at ON searches (created_at);
`

const selectColumns = `id, transcript, language, ref, confidence, alternatives, created_at`

// Store is a search history backed by SQLite. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the history database at path. Use
// sqlite.MemoryPath for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, errors.NewIO("open history", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate history", path, err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Record stores a parsed reference and returns the new entry.
func (s *Store) Record(ctx context.Context, r refparse.ParsedReference) (Entry, error) {
	e := Entry{
		ID:         uuid.NewString(),
		Transcript: r.RawTranscript,
		Language:   r.Language,
		Confidence: r.Confidence,
		CreatedAt:  s.now().UTC(),
	}
	if ref := r.Ref(); ref != nil {
		e.Ref = ref.String()
	}
	for _, b := range r.AlternativeBooks {
		e.Alternatives = append(e.Alternatives, b.ID)
	}

	if _, err := insert(ctx, s.db, "INSERT", e); err != nil {
		return Entry{}, errors.NewIO("record search", s.path, err)
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insert writes e with the given verb ("INSERT" or "INSERT OR IGNORE") and
// reports whether a row was added.
func insert(ctx context.Context, db execer, verb string, e Entry) (bool, error) {
	res, err := db.ExecContext(ctx,
		verb+` INTO searches (id, transcript, language, ref, confidence, alternatives, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Transcript, string(e.Language), e.Ref, string(e.Confidence),
		strings.Join(e.Alternatives, ","), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 || limit > MaxLimit {
		return nil, &errors.ValidationError{
			Field:   "limit",
			Value:   strconv.Itoa(limit),
			Message: "must be between 1 and " + strconv.Itoa(MaxLimit),
		}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM searches ORDER BY created_at DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewIO("list searches", s.path, err)
	}
	return collect(rows, s.path)
}

// All returns every entry, oldest first.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM searches ORDER BY created_at, seq`)
	if err != nil {
		return nil, errors.NewIO("list searches", s.path, err)
	}
	return collect(rows, s.path)
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, errors.NewValidation("id", "not a valid search id")
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM searches WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.NewNotFound("search", id)
	}
	if err != nil {
		return Entry{}, errors.NewIO("get search", s.path, err)
	}
	return e, nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM searches`).Scan(&n); err != nil {
		return 0, errors.NewIO("count searches", s.path, err)
	}
	return n, nil
}

// Clear deletes every entry and reports how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches`)
	if err != nil {
		return 0, errors.NewIO("clear searches", s.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewIO("clear searches", s.path, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                  Entry
		lang, conf, alts   string
		createdAtUnixNanos int64
	)
	if err := row.Scan(&e.ID, &e.Transcript, &lang, &e.Ref, &conf, &alts, &createdAtUnixNanos); err != nil {
		return Entry{}, err
	}
	e.Language = refparse.Language(lang)
	e.Confidence = refparse.Confidence(conf)
	if alts != "" {
		e.Alternatives = strings.Split(alts, ",")
	}
	e.CreatedAt = time.Unix(0, createdAtUnixNanos).UTC()
	return e, nil
}

func collect(rows *sql.Rows, path string) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewIO("read search", path, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("read searches", path, err)
	}
	return entries, nil
}
