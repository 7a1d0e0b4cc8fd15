// Package artifact persists lead tables between pipeline stages. Every
// stage reads one artifact and publishes the next; publishing is atomic so
// a crashed or aborted stage never leaves a partial file behind.
package artifact

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	// ErrNotFound is returned when an artifact path does not exist.
	ErrNotFound = eris.New("artifact: not found")
	// ErrMalformed is returned when an artifact cannot be parsed into a
	// header plus equal-length rows.
	ErrMalformed = eris.New("artifact: malformed")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a loaded artifact: its header and leads in file order.
type Table struct {
	Header []string
	Leads  []*model.Lead
}

// Require checks that every col appears in the header.
func (t *Table) Require(cols ...string) error {
	if missing := MissingColumns(t.Header, cols...); len(missing) > 0 {
		return eris.Wrapf(ErrMalformed, "missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MissingColumns returns the cols absent from header, in cols order.
func MissingColumns(header []string, cols ...string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// Store reads and writes artifacts on the local filesystem.
type Store struct {
	lockTimeout time.Duration
	lockRetry   time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long Save waits for another writer.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// NewStore creates a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		lockTimeout: 30 * time.Second,
		lockRetry:   50 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads a .csv or .xlsx artifact.
func (s *Store) Load(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, eris.Wrapf(err, "artifact: stat %s", path)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "artifact: load cancelled")
	}

	t, err := buildTable(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "%s", path)
	}

	zap.L().Debug("artifact: loaded",
		zap.String("path", path),
		zap.Int("columns", len(t.Header)),
		zap.Int("rows", len(t.Leads)),
	)
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		decoded, derr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if derr != nil {
			return nil, eris.Wrapf(ErrMalformed, "%s: undecodable text: %v", path, derr)
		}
		zap.L().Warn("artifact: not valid UTF-8, decoded as latin-1", zap.String("path", path))
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // ragged rows are reported with their line number below

	var rows [][]string
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, eris.Wrapf(ErrMalformed, "%s: %v", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func buildTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.Wrap(ErrMalformed, "no header row")
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, eris.Wrapf(ErrMalformed, "blank column name at position %d", i+1)
		}
		if seen[h] {
			return nil, eris.Wrapf(ErrMalformed, "duplicate column %q", h)
		}
		seen[h] = true
		header[i] = h
	}

	t := &Table{Header: header, Leads: make([]*model.Lead, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			// Header is row 1, so data row i sits on row i+2.
			return nil, eris.Wrapf(ErrMalformed, "row %d has %d fields, header has %d", i+2, len(row), len(header))
		}
		t.Leads = append(t.Leads, model.LeadFromRow(header, row))
	}
	return t, nil
}

// Save atomically publishes leads to path as CSV. The header is base
// followed by any columns the leads added, in first-seen order.
func (s *Store) Save(ctx context.Context, path string, base []string, leads []*model.Lead) error {
	header := model.MergeHeader(base, leads)
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, l.Row(header))
	}
	if err := s.publish(ctx, path, header, rows); err != nil {
		return err
	}
	zap.L().Info("artifact: saved",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// SaveFailures publishes the failed-record artifact beside an output. Each
// row carries the lead's columns plus the failing stage, reason and detail.
// Nothing is written when failures is empty; a stale file from an earlier
// run is removed instead.
func (s *Store) SaveFailures(ctx context.Context, path string, base []string, failures []model.Failure) error {
	if len(failures) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "artifact: remove stale %s", path)
		}
		return nil
	}

	leads := make([]*model.Lead, 0, len(failures))
	for _, f := range failures {
		l := f.Lead.Clone()
		l.Set(model.FieldFailureStage, f.Stage)
		l.Set(model.FieldFailureReason, string(f.Reason))
		l.Set(model.FieldFailureDetail, f.Detail)
		leads = append(leads, l)
	}
	return s.Save(ctx, path, base, leads)
}

// FailedPath returns the failed-record artifact path for an output path.
func FailedPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + "_failed.csv"
}

func (s *Store) publish(ctx context.Context, path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create dir %s", dir)
	}

	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	ok, err := lock.TryLockContext(lockCtx, s.lockRetry)
	if err != nil {
		return eris.Wrapf(err, "artifact: lock %s", path)
	}
	if !ok {
		return eris.Errorf("artifact: %s is locked by another writer", path)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			zap.L().Warn("artifact: release lock", zap.String("path", path), zap.Error(uerr))
		}
	}()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "artifact: create temp for %s", path)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "artifact: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrap(err, "artifact: write rows")
	}
	if err := tmp.Sync(); err != nil {
		return eris.Wrap(err, "artifact: sync")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "artifact: close temp")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "artifact: publish %s", path)
	}
	committed = true
	return nil
}
