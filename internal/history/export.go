package history

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/versefinder/core/errors"
)

// ExportFormat names the archive layout written by Export.
const ExportFormat = "jsonl.xz"

// Export writes every entry, oldest first, as xz-compressed JSON Lines and
// returns the number of entries written.
func (s *Store) Export(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return 0, err
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create xz writer")
	}
	enc := json.NewEncoder(xw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			xw.Close()
			return 0, errors.Wrap(err, "failed to encode entry "+e.ID)
		}
	}
	if err := xw.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to finish xz stream")
	}
	return len(entries), nil
}

// Import adds entries read from an export in one transaction. Entries whose
// id is already stored are skipped; the number added is returned.
func (s *Store) Import(ctx context.Context, entries []Entry) (int, error) {
	for _, e := range entries {
		if _, err := uuid.Parse(e.ID); err != nil {
			return 0, &errors.ValidationError{Field: "id", Value: e.ID, Message: "must be a UUID"}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewIO("import searches", s.path, err)
	}
	defer tx.Rollback()

	added := 0
	for _, e := range entries {
		ok, err := insert(ctx, tx, "INSERT OR IGNORE", e)
		if err != nil {
			return 0, errors.NewIO("import searches", s.path, err)
		}
		if ok {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.NewIO("import searches", s.path, err)
	}
	return added, nil
}

// ReadExport decodes an archive written by Export. Every entry's reference
// must name a catalog book and one of its chapters.
func ReadExport(r io.Reader) ([]Entry, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, errors.NewParse(ExportFormat, "", err.Error())
	}

	entries := []Entry{}
	sc := bufio.NewScanner(xr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, errors.NewParse(ExportFormat, "line "+strconv.Itoa(line), err.Error())
		}
		if _, _, err := e.Reference(); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewParse(ExportFormat, "", err.Error())
	}
	return entries, nil
}
