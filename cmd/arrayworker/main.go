// Command arrayworker runs one array task of a submitted batch. It is
// what a job script executes per task: resolve the run directory for
// this task id from the batch's combination index, then run the
// simulation program on the directory's input file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fjordsim/sweepforge/internal/fsutil"
	"github.com/fjordsim/sweepforge/internal/materialize"
)

// taskIDEnv is set by the scheduler for every task of an array job.
const taskIDEnv = "SLURM_ARRAY_TASK_ID"

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	code, err := run(os.Stdout, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

// run resolves the task's run directory and executes the simulation,
// returning the child's exit code.
func run(outW io.Writer, args []string) (int, error) {
	flagSet := flag.NewFlagSet("arrayworker", flag.ContinueOnError)
	flagSet.SetOutput(outW)
	programFlag := flagSet.String("program", "./program", "Simulation program to run, relative to the run directory.")
	mpirunFlag := flagSet.String("mpirun", "mpirun", "MPI launcher binary.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Resolve the run directory and print the command without running it.")
	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, nil
		}
		return 2, err
	}

	raw, ok := os.LookupEnv(taskIDEnv)
	if !ok {
		return 1, fmt.Errorf("$%s not set; run this command through sbatch --array=...", taskIDEnv)
	}
	taskID, err := strconv.Atoi(raw)
	if err != nil {
		return 1, fmt.Errorf("bad $%s value %q: %w", taskIDEnv, raw, err)
	}
	slog.Info("Array task starting.", "task_id", taskID)

	index, err := materialize.LoadIndex(materialize.IndexFileName)
	if err != nil {
		return 1, err
	}

	runDir, err := materialize.FindRunDir(".", index.Prefix, taskID)
	if err != nil {
		return 1, err
	}
	slog.Info("Run directory resolved.", "directory", runDir)

	inputs, err := findInputsFile(runDir)
	if err != nil {
		return 1, err
	}

	argv := []string{*mpirunFlag, *programFlag, inputs, fmt.Sprintf("Random.seed=%d", taskID)}
	slog.Info("Launching simulation.", "command", strings.Join(argv, " "))
	if *dryRunFlag {
		return 0, nil
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = runDir
	cmd.Stdout = outW
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), fmt.Errorf("simulation exited with %d", exitErr.ExitCode())
		}
		return 1, err
	}
	return 0, nil
}

// findInputsFile locates the *.inputs file the simulation reads,
// returned relative to the run directory the command executes in.
func findInputsFile(runDir string) (string, error) {
	matches, err := fsutil.FindFilesByExtension(runDir, ".inputs")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("missing *.inputs file in run directory %s", runDir)
	}
	if len(matches) > 1 {
		slog.Warn("Multiple *.inputs files found, using the first.", "file", matches[0])
	}
	return filepath.Rel(runDir, matches[0])
}
