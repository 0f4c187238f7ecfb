package materialize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/definition"
	"github.com/fjordsim/sweepforge/internal/document"
	"github.com/fjordsim/sweepforge/internal/fsutil"
)

// ErrDirectoryExists reports a batch or run directory that already
// exists. Directories hold simulation output; they are never reused
// silently.
var ErrDirectoryExists = errors.New("output directory already exists")

// dimensionalityPlaceholder is substituted in program paths with the
// configured simulation dimensionality.
const dimensionalityPlaceholder = "{DIMENSIONALITY}"

// Batch is one database or study prepared for materialization: its
// batch directory exists and carries the job script, program, and
// required files.
type Batch struct {
	obj     *definition.Object
	dir     string
	program string
	dim     int
}

// Dir returns the batch directory.
func (b *Batch) Dir() string {
	return b.dir
}

// Identifier returns the definition identifier the batch was built from.
func (b *Batch) Identifier() string {
	return b.obj.Identifier
}

// JobScriptName returns the file name of the job script as copied into
// the batch directory, the script a submission runs relative to it.
func (b *Batch) JobScriptName() string {
	return filepath.Base(b.obj.JobScript)
}

// SetupEnv creates the batch directory for a database or study under
// outputDir and copies in everything a run needs: the job script (plus
// a jobscript_symlink alias), the program with its dimensionality
// placeholder substituted, required files, and job script dependencies.
// A structure.json record of the cleaned definition is written for
// postprocessing. The directory must not already exist.
func SetupEnv(ctx context.Context, obj *definition.Object, kind string, outputDir string, dim int) (*Batch, error) {
	logger := ctxlog.FromContext(ctx)

	dir := filepath.Join(outputDir, obj.OutputDirectory)
	logger.Info("Setting up simulation batch.", "kind", kind, "identifier", obj.Identifier, "directory", dir)

	if err := fsutil.MkdirAllNew(dir); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryExists, dir)
		}
		return nil, err
	}

	if err := fsutil.CopyFileInto(obj.JobScript, dir); err != nil {
		return nil, fmt.Errorf("job script: %w", err)
	}
	logger.Debug("Job script copied.", "job_script", obj.JobScript)
	if err := os.Symlink(filepath.Base(obj.JobScript), filepath.Join(dir, "jobscript_symlink")); err != nil {
		return nil, err
	}

	program := strings.ReplaceAll(obj.Program, dimensionalityPlaceholder, strconv.Itoa(dim))
	if err := fsutil.CopyFileInto(program, dir); err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	logger.Debug("Program copied.", "program", program)

	if err := copyFiles(ctx, obj.RequiredFiles, dir); err != nil {
		return nil, fmt.Errorf("required files: %w", err)
	}
	if len(obj.JobScriptDependencies) == 0 {
		logger.Warn("No job script dependencies declared.", "identifier", obj.Identifier)
	} else if err := copyFiles(ctx, obj.JobScriptDependencies, dir); err != nil {
		return nil, fmt.Errorf("job script dependencies: %w", err)
	}

	b := &Batch{obj: obj, dir: dir, program: program, dim: dim}
	if err := b.writeStructure(); err != nil {
		return nil, err
	}
	logger.Debug("Structure record written.", "file", filepath.Join(dir, "structure.json"))

	return b, nil
}

// writeStructure records the definition the batch was built from,
// cleaned of absolute paths, so results stay interpretable without the
// original run definition file.
func (b *Batch) writeStructure() error {
	root := document.NewMap()
	root.Set("identifier", b.obj.Identifier)
	root.Set("program", filepath.Base(b.program))
	root.Set("program_options", b.obj.ProgramOptions)
	root.Set("job_script", filepath.Base(b.obj.JobScript))
	root.Set("job_script_dependencies", baseNames(b.obj.JobScriptDependencies))
	root.Set("required_files", baseNames(b.obj.RequiredFiles))
	root.Set("parameter_space", spaceDocument(b.obj))
	root.Set("space_order", stringSeq(b.obj.Space.Keys()))
	root.Set("dim", json.Number(strconv.Itoa(b.dim)))
	root.Set("output_dir_prefix", b.obj.OutputDirPrefix)

	return writeDocumentNew(filepath.Join(b.dir, "structure.json"), root)
}

// spaceDocument renders the parameter space back into document form, in
// declaration order.
func spaceDocument(obj *definition.Object) *document.Map {
	out := document.NewMap()
	for _, p := range obj.Space.Params() {
		pm := document.NewMap()
		if p.Target != "" {
			pm.Set("target", p.Target)
		}
		if p.Address != nil {
			pm.Set("uri", p.Address.Raw())
		}
		if p.Values != nil {
			pm.Set("values", p.Values)
		}
		if p.Database != "" {
			pm.Set("database", p.Database)
		}
		if p.Disparate {
			pm.Set("disparate", true)
		}
		out.Set(p.Name, pm)
	}
	return out
}

func baseNames(paths []string) *document.Seq {
	seq := document.NewSeq()
	for _, p := range paths {
		seq.Append(filepath.Base(p))
	}
	return seq
}

func stringSeq(items []string) *document.Seq {
	seq := document.NewSeq()
	for _, s := range items {
		seq.Append(s)
	}
	return seq
}

func copyFiles(ctx context.Context, files []string, dst string) error {
	logger := ctxlog.FromContext(ctx)
	for _, f := range files {
		if err := fsutil.CopyFileInto(f, dst); err != nil {
			return err
		}
		logger.Debug("Copied in file.", "file", f)
	}
	return nil
}

// writeDocumentNew renders a document tree and writes it create-or-fail.
func writeDocumentNew(path string, root any) error {
	var buf bytes.Buffer
	if err := document.Save(&buf, root); err != nil {
		return err
	}
	return fsutil.WriteFileNew(path, buf.Bytes())
}
