// Package materialize turns a batch of combinations into run
// directories on disk: the batch environment (job script, program,
// required files, structure record), one sequentially numbered
// directory per combination with its target files patched, and the
// persisted combination index that later stages and dependent studies
// resolve rows against.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/fjordsim/sweepforge/internal/document"
	"github.com/fjordsim/sweepforge/internal/fsutil"
	"github.com/fjordsim/sweepforge/internal/space"
)

// ErrRowNotFound reports a projected key tuple absent from a producer's
// combination index.
var ErrRowNotFound = errors.New("combination row not found in index")

// IndexFileName is the per-batch combination index file.
const IndexFileName = "index.json"

// indexBackups bounds the rotation of index and job-id files on
// resubmission.
const indexBackups = 5

// Index is the durable record of a materialized batch: the run
// directory naming prefix, the parameter key order the rows were built
// with, and the combinations themselves in run-directory order.
type Index struct {
	Prefix string
	Keys   []string
	Rows   []space.Combination
}

// RunDirName returns the run directory name for row i.
func (ix *Index) RunDirName(i int) string {
	return fmt.Sprintf("%s%d", ix.Prefix, i)
}

// LookupRow finds the index of the row equal to the given combination,
// compared element for element. The combination must already be in the
// index's own key order.
func (ix *Index) LookupRow(row space.Combination) (int, error) {
	for i, r := range ix.Rows {
		if space.EqualCombinations(r, row) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %v (keys %v)", ErrRowNotFound, row, ix.Keys)
}

// WriteFile persists the index to path with four-space indentation. An
// existing file is rotated out of the way first, so resubmissions keep
// a bounded trail of prior indexes.
func (ix *Index) WriteFile(path string) error {
	root := document.NewMap()
	root.Set("prefix", ix.Prefix)

	keys := document.NewSeq()
	for _, key := range ix.Keys {
		keys.Append(key)
	}
	root.Set("keys", keys)

	rows := document.NewMap()
	for i, row := range ix.Rows {
		rows.Set(strconv.Itoa(i), []any(row))
	}
	root.Set("index", rows)

	if err := fsutil.RotateBounded(path, indexBackups); err != nil {
		return err
	}
	return writeDocumentNew(path, root)
}

// LoadIndex reads a previously written index file.
func LoadIndex(path string) (*Index, error) {
	root, err := document.LoadFile(path)
	if err != nil {
		return nil, err
	}
	m, ok := root.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("%s: index must be an object, got %T", path, root)
	}

	ix := &Index{}
	rawPrefix, _ := m.Get("prefix")
	if ix.Prefix, ok = rawPrefix.(string); !ok {
		return nil, fmt.Errorf("%s: missing or non-string prefix", path)
	}

	rawKeys, _ := m.Get("keys")
	keySeq, ok := rawKeys.(*document.Seq)
	if !ok {
		return nil, fmt.Errorf("%s: missing keys list", path)
	}
	ix.Keys = make([]string, keySeq.Len())
	for i := range ix.Keys {
		key, ok := keySeq.At(i).(string)
		if !ok {
			return nil, fmt.Errorf("%s: non-string key at %d", path, i)
		}
		ix.Keys[i] = key
	}

	rawRows, _ := m.Get("index")
	rowMap, ok := rawRows.(*document.Map)
	if !ok {
		return nil, fmt.Errorf("%s: missing index object", path)
	}
	ix.Rows = make([]space.Combination, rowMap.Len())
	for _, key := range rowMap.Keys() {
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(ix.Rows) {
			return nil, fmt.Errorf("%s: bad row index %q", path, key)
		}
		raw, _ := rowMap.Get(key)
		seq, ok := raw.(*document.Seq)
		if !ok {
			return nil, fmt.Errorf("%s: row %q must be a list, got %T", path, key, raw)
		}
		row := make(space.Combination, seq.Len())
		for j := range row {
			row[j] = seq.At(j)
		}
		ix.Rows[i] = row
	}
	for i, row := range ix.Rows {
		if row == nil {
			return nil, fmt.Errorf("%s: row %d missing", path, i)
		}
	}
	return ix, nil
}

// FindRunDir locates the run directory for an array task id under
// root, tolerating leading zeros in the directory name.
func FindRunDir(root, prefix string, taskID int) (string, error) {
	pattern, err := regexp.Compile(
		fmt.Sprintf(`^%s0*%d$`, regexp.QuoteMeta(prefix), taskID))
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() && pattern.MatchString(entry.Name()) {
			return filepath.Join(root, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no run directory for task %d (prefix %q) under %s", taskID, prefix, root)
}
