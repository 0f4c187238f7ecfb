package materialize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/document"
	"github.com/fjordsim/sweepforge/internal/inputfile"
	"github.com/fjordsim/sweepforge/internal/space"
)

// ErrShapeMismatch reports an address whose dimension count disagrees
// with the shape of the value written through it.
var ErrShapeMismatch = errors.New("address dimensionality does not match value shape")

// ErrUnknownTarget reports a parameter target whose file suffix is
// neither a structured document nor a line-oriented input file.
var ErrUnknownTarget = errors.New("unknown target file type")

// MaterializeRuns creates one run directory per combination, writes the
// batch's combination index, and patches every targeted file inside
// each run directory. Rows are materialized in index order; a failure
// aborts the batch without rolling back directories already written.
// The returned index is the one persisted to the batch directory.
func (b *Batch) MaterializeRuns(ctx context.Context, rows []space.Combination) (*Index, error) {
	logger := ctxlog.FromContext(ctx)

	if len(rows) == 0 {
		return nil, fmt.Errorf("batch %q has no combinations to materialize", b.obj.Identifier)
	}

	ix := &Index{
		Prefix: b.obj.OutputDirPrefix,
		Keys:   b.obj.Space.Keys(),
		Rows:   rows,
	}
	for i, row := range rows {
		if len(row) != len(ix.Keys) {
			return nil, fmt.Errorf("%w: batch %q combination %d has %d values for %d keys",
				ErrShapeMismatch, b.obj.Identifier, i, len(row), len(ix.Keys))
		}
	}
	if err := ix.WriteFile(filepath.Join(b.dir, IndexFileName)); err != nil {
		return nil, err
	}
	logger.Debug("Combination index written.", "identifier", b.obj.Identifier, "rows", len(rows))

	for i, row := range rows {
		if err := b.setupRunDir(ctx, ix, i, row); err != nil {
			return nil, fmt.Errorf("batch %q combination %d: %w", b.obj.Identifier, i, err)
		}
	}
	return ix, nil
}

func (b *Batch) setupRunDir(ctx context.Context, ix *Index, i int, row space.Combination) error {
	logger := ctxlog.FromContext(ctx)

	runDir := filepath.Join(b.dir, ix.RunDirName(i))
	logger.Debug("Materializing run directory.", "directory", runDir)

	if err := os.Mkdir(runDir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDirectoryExists, runDir)
		}
		return err
	}

	if err := copyFiles(ctx, b.obj.RequiredFiles, runDir); err != nil {
		return fmt.Errorf("required files: %w", err)
	}
	if err := os.Symlink(filepath.Join("..", filepath.Base(b.program)), filepath.Join(runDir, "program")); err != nil {
		return err
	}

	// record the combination under its parameter names, for browsing
	// and cataloguing result sets
	params := document.NewMap()
	for j, key := range ix.Keys {
		params.Set(key, row[j])
	}
	if err := writeDocumentNew(filepath.Join(runDir, "parameters.json"), params); err != nil {
		return err
	}

	return b.applyCombination(ctx, runDir, row)
}

// applyCombination patches every targeted file in runDir with the
// combination's values. Structured documents are loaded once per
// distinct target, patched in memory by every parameter touching them,
// and saved once at the end. Parameters without a target are
// bookkeeping only.
func (b *Batch) applyCombination(ctx context.Context, runDir string, row space.Combination) error {
	docs := make(map[string]any)
	var saveOrder []string

	for i, p := range b.obj.Space.Params() {
		if p.Target == "" {
			continue
		}
		target := filepath.Join(runDir, p.Target)

		switch filepath.Ext(p.Target) {
		case ".json":
			root, ok := docs[target]
			if !ok {
				var err error
				if root, err = document.LoadFile(target); err != nil {
					return fmt.Errorf("parameter %q: %w", p.Name, err)
				}
				docs[target] = root
				saveOrder = append(saveOrder, target)
			}
			if err := patchDocument(ctx, root, &p, row[i]); err != nil {
				return fmt.Errorf("parameter %q target %q: %w", p.Name, p.Target, err)
			}

		case ".inputs":
			if err := patchInput(target, &p, row[i]); err != nil {
				return fmt.Errorf("parameter %q target %q: %w", p.Name, p.Target, err)
			}

		default:
			return fmt.Errorf("%w: parameter %q target %q", ErrUnknownTarget, p.Name, p.Target)
		}
	}

	for _, target := range saveOrder {
		if err := document.SaveFile(target, docs[target]); err != nil {
			return err
		}
	}
	return nil
}

// patchDocument writes a value through every expanded dimension of the
// parameter's address. A multi-dimension address requires a sequence
// value of matching length; the shapes are checked before any write so
// a mismatch leaves the document untouched.
func patchDocument(ctx context.Context, root any, p *space.Param, value any) error {
	if p.Address == nil {
		return fmt.Errorf("no uri for parameter")
	}
	dims, err := p.Address.Expand(p.Disparate)
	if err != nil {
		return err
	}

	if len(dims) == 1 {
		return document.SetValue(ctx, root, dims[0], value)
	}

	slices := valueSlice(value)
	if slices == nil {
		return fmt.Errorf("%w: address %s has %d dimensions but value %v is a scalar",
			ErrShapeMismatch, p.Address, len(dims), value)
	}
	if len(slices) != len(dims) {
		return fmt.Errorf("%w: address %s has %d dimensions, value has %d elements",
			ErrShapeMismatch, p.Address, len(dims), len(slices))
	}

	for i, path := range dims {
		if err := document.SetValue(ctx, root, path, slices[i]); err != nil {
			return err
		}
	}
	return nil
}

// patchInput rewrites a line-oriented input file. Input targets only
// take scalar addresses.
func patchInput(target string, p *space.Param, value any) error {
	if p.Address == nil {
		return fmt.Errorf("no uri for parameter")
	}
	key, ok := p.Address.Scalar()
	if !ok {
		return fmt.Errorf("input file address must be a scalar string, got %s", p.Address)
	}
	if key == "" {
		return fmt.Errorf("empty uri string")
	}
	return inputfile.SetField(target, key, value)
}

// valueSlice unwraps a sequence value into its elements, returning nil
// for scalars.
func valueSlice(value any) []any {
	switch v := value.(type) {
	case *document.Seq:
		items := make([]any, v.Len())
		for i := range items {
			items[i] = v.At(i)
		}
		return items
	case []any:
		return v
	default:
		return nil
	}
}
