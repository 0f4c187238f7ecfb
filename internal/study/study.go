// Package study orchestrates one invocation end to end: it prepares
// batch environments for every database and study in a run definition,
// accumulates the deduplicated combination requests each producing
// database must materialize, and submits databases before the studies
// that depend on them, threading job ids through as scheduler
// dependencies.
package study

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/definition"
	"github.com/fjordsim/sweepforge/internal/document"
	"github.com/fjordsim/sweepforge/internal/fsutil"
	"github.com/fjordsim/sweepforge/internal/materialize"
	"github.com/fjordsim/sweepforge/internal/slurm"
	"github.com/fjordsim/sweepforge/internal/space"
)

// Options configures one setup run.
type Options struct {
	// OutputDir is the root directory for all batch directories. It
	// must not already exist.
	OutputDir string

	// Dim is the simulation dimensionality substituted into program
	// paths.
	Dim int

	// Submitter issues the scheduler submissions.
	Submitter *slurm.Submitter
}

// database tracks a producer across the setup passes: its prepared
// batch, the request set its consumers accumulate, and after
// submission, its index and job id.
type database struct {
	obj      *definition.Object
	batch    *materialize.Batch
	requests *space.CombinationSet
	index    *materialize.Index
	jobID    string
}

// study tracks a consumer between environment setup and submission.
type study struct {
	obj          *definition.Object
	batch        *materialize.Batch
	combinations []space.Combination
	refs         []space.DatabaseRef
}

// Setup materializes and submits every database and study in the
// definition. Databases are always submitted first: a database has no
// forward knowledge of its consumers, its combination set is exactly
// the union of what the studies request. Any failure halts the whole
// setup; batches already written are not rolled back.
func Setup(ctx context.Context, def *definition.Definition, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	if err := def.Verify(); err != nil {
		return err
	}
	if opts.Submitter == nil {
		return errors.New("no submitter configured")
	}

	logger.Debug("Creating output directory.", "directory", opts.OutputDir)
	if err := fsutil.MkdirAllNew(opts.OutputDir); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", materialize.ErrDirectoryExists, opts.OutputDir)
		}
		return err
	}

	// pass 1: prepare every environment and gather database requests
	databases := make(map[string]*database, len(def.Databases))
	for _, obj := range def.Databases {
		batch, err := materialize.SetupEnv(ctx, obj, "database", opts.OutputDir, opts.Dim)
		if err != nil {
			return fmt.Errorf("database %q: %w", obj.Identifier, err)
		}
		databases[obj.Identifier] = &database{
			obj:      obj,
			batch:    batch,
			requests: space.NewCombinationSet(),
		}
	}

	studies := make([]*study, 0, len(def.Studies))
	for _, obj := range def.Studies {
		st, err := prepareStudy(ctx, obj, databases, opts)
		if err != nil {
			return fmt.Errorf("study %q: %w", obj.Identifier, err)
		}
		studies = append(studies, st)
	}

	// pass 2: materialize and submit the databases
	for _, obj := range def.Databases {
		db := databases[obj.Identifier]
		rows := db.requests.Sorted()
		logger.Info("Database combination set accumulated.", "identifier", obj.Identifier, "rows", len(rows))

		index, err := db.batch.MaterializeRuns(ctx, rows)
		if err != nil {
			return err
		}
		db.index = index

		db.jobID, err = opts.Submitter.Submit(ctx, slurm.Request{
			Identifier: obj.Identifier,
			Dir:        db.batch.Dir(),
			JobScript:  db.batch.JobScriptName(),
			NumJobs:    len(rows),
		})
		if err != nil {
			return err
		}
	}

	// pass 3: wire each study to its producers, then materialize and
	// submit it
	for _, st := range studies {
		if err := submitStudy(ctx, st, databases, opts); err != nil {
			return fmt.Errorf("study %q: %w", st.obj.Identifier, err)
		}
	}
	return nil
}

func prepareStudy(ctx context.Context, obj *definition.Object, databases map[string]*database, opts Options) (*study, error) {
	logger := ctxlog.FromContext(ctx)

	batch, err := materialize.SetupEnv(ctx, obj, "study", opts.OutputDir, opts.Dim)
	if err != nil {
		return nil, err
	}

	logger.Info("Parameter order.", "keys", obj.Space.Keys())
	combinations, err := obj.Space.Combinations()
	if err != nil {
		return nil, err
	}

	refs := obj.Space.DatabaseRefs()
	for _, ref := range refs {
		db, ok := databases[ref.Database]
		if !ok {
			return nil, fmt.Errorf("references unknown database %q", ref.Database)
		}
		// a partial reference would request rows the producer cannot
		// index by its own key order
		if len(ref.Keys) != db.obj.Space.Len() {
			return nil, fmt.Errorf("database %q: study utilizes %d of its %d parameters; every database parameter must be referenced",
				ref.Database, len(ref.Keys), db.obj.Space.Len())
		}
		err := space.AccumulateDatabaseRequests(
			db.requests, obj.Space.Keys(), ref.Keys, db.obj.Space.Keys(), combinations)
		if err != nil {
			return nil, fmt.Errorf("database %q: %w", ref.Database, err)
		}
	}

	return &study{obj: obj, batch: batch, combinations: combinations, refs: refs}, nil
}

// submitStudy resolves every producer row the study depends on,
// records the resolution, links the producer directories into the
// study directory, and submits the study with after-success
// dependencies on its producers. Row resolution happens before
// anything is submitted: a study that depends on data that does not
// exist must not reach the scheduler.
func submitStudy(ctx context.Context, st *study, databases map[string]*database, opts Options) error {
	logger := ctxlog.FromContext(ctx)

	resolved := document.NewMap()
	var deps []string
	for _, ref := range st.refs {
		db := databases[ref.Database]

		indices, err := space.ProjectionIndices(st.obj.Space.Keys(), ref.Keys, db.obj.Space.Keys())
		if err != nil {
			return fmt.Errorf("database %q: %w", ref.Database, err)
		}
		rows := document.NewSeq()
		for i, comb := range st.combinations {
			rowIdx, err := db.index.LookupRow(space.Project(comb, indices))
			if err != nil {
				return fmt.Errorf("combination %d: database %q: %w", i, ref.Database, err)
			}
			rows.Append(json.Number(strconv.Itoa(rowIdx)))
		}
		resolved.Set(ref.Database, rows)

		// relative link so array tasks can read producer rows
		link := filepath.Join(st.batch.Dir(), ref.Database)
		if err := os.Symlink(filepath.Join("..", db.obj.OutputDirectory), link); err != nil {
			return err
		}

		if db.jobID != "" {
			deps = append(deps, db.jobID)
		}
	}

	index, err := st.batch.MaterializeRuns(ctx, st.combinations)
	if err != nil {
		return err
	}

	if resolved.Len() > 0 {
		if err := writeResolvedRows(st.batch.Dir(), resolved); err != nil {
			return err
		}
		logger.Debug("Database row resolution written.", "identifier", st.obj.Identifier, "databases", resolved.Keys())
	}

	_, err = opts.Submitter.Submit(ctx, slurm.Request{
		Identifier: st.obj.Identifier,
		Dir:        st.batch.Dir(),
		JobScript:  st.batch.JobScriptName(),
		NumJobs:    len(index.Rows),
		AfterOK:    deps,
	})
	return err
}

// writeResolvedRows records, per producing database, the producer row
// index backing each study combination, in combination order.
func writeResolvedRows(dir string, resolved *document.Map) error {
	f, err := os.OpenFile(filepath.Join(dir, "db_rows.json"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := document.Save(f, resolved); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
