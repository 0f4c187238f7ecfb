package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fjordsim/sweepforge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly,
// or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("sweepforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
sweepforge - expand parameter studies into SLURM array job batches.

Usage:
  sweepforge [options] RUN_DEFINITION

Arguments:
  RUN_DEFINITION
    Path to a run definition file (.json, .yaml, .yml or .hcl).

Options:
`)
		flagSet.PrintDefaults()
	}

	outputDirFlag := flagSet.String("output-dir", "study_results", "Output directory for study result files. Must not already exist.")
	dimFlag := flagSet.Int("dim", 3, "Dimensionality of simulations, substituted into program paths.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Materialize directory structures but skip sbatch submission.")
	logfileFlag := flagSet.String("logfile", "sweepforge.log", "Log file path, rotated with up to 5 backups.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	verboseFlag := flagSet.Bool("verbose", false, "Shorthand for --log-level=debug.")
	submitTimeoutFlag := flagSet.Duration("submit-timeout", 2*time.Minute, "Bound on the sbatch acknowledgement wait.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "expected exactly one RUN_DEFINITION argument"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *verboseFlag {
		logLevel = "debug"
	}

	config, err := app.NewConfig(app.Config{
		RunDefinition: flagSet.Arg(0),
		OutputDir:     *outputDirFlag,
		Dim:           *dimFlag,
		DryRun:        *dryRunFlag,
		Logfile:       *logfileFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		SubmitTimeout: *submitTimeoutFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
