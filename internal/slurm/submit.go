// Package slurm submits materialized batches to the SLURM scheduler as
// array jobs and threads the acknowledged job ids into dependent
// submissions. The submitter only waits for sbatch's synchronous
// acknowledgement line; running and completing the jobs is the
// scheduler's business.
package slurm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/armon/circbuf"
	"github.com/mitchellh/go-linereader"

	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/fsutil"
)

// ErrSubmissionFailure reports sbatch output with no recognizable job
// id.
var ErrSubmissionFailure = errors.New("no job id found in submission output")

// ErrSubmissionTimeout reports an acknowledgement wait that exceeded
// the configured bound.
var ErrSubmissionTimeout = errors.New("timed out waiting for submission acknowledgement")

// ackRegex extracts the job id from sbatch's acknowledgement line.
var ackRegex = regexp.MustCompile(`^Submitted batch job (?P<job_id>[0-9]+)`)

const (
	// DefaultTimeout bounds the acknowledgement wait. sbatch answers
	// within seconds when the controller is healthy; an unbounded wait
	// would hang the whole setup on a wedged controller.
	DefaultTimeout = 2 * time.Minute

	// maxArrayJobs is a common site limit for array job sizes; larger
	// batches are submitted anyway with a warning.
	maxArrayJobs = 1000

	// jobIDFileName persists the acknowledged id in the batch directory
	// for cross-run auditing and dependent submissions.
	jobIDFileName = "array_job_id"

	jobIDBackups = 5

	// outputCaptureSize bounds the submission output retained for error
	// reports.
	outputCaptureSize = 32 * 1024
)

// StartFunc launches the submission command with the given working
// directory and argv, returning its combined output stream and a wait
// function that reaps the process. Tests substitute a fake.
type StartFunc func(ctx context.Context, dir string, argv []string) (io.ReadCloser, func() error, error)

// Options configures a Submitter.
type Options struct {
	// Sbatch is the submission binary, "sbatch" when empty.
	Sbatch string

	// Timeout bounds the acknowledgement wait, DefaultTimeout when
	// zero.
	Timeout time.Duration

	// DryRun logs the submission command instead of running it.
	DryRun bool

	// Start overrides process startup for tests.
	Start StartFunc
}

// Submitter submits one batch at a time. A batch moves from
// unsubmitted to submitted with a job id; the scheduler owns every
// later state.
type Submitter struct {
	sbatch  string
	timeout time.Duration
	dryRun  bool
	start   StartFunc
}

// New builds a Submitter from options, filling in defaults.
func New(opts Options) *Submitter {
	s := &Submitter{
		sbatch:  opts.Sbatch,
		timeout: opts.Timeout,
		dryRun:  opts.DryRun,
		start:   opts.Start,
	}
	if s.sbatch == "" {
		s.sbatch = "sbatch"
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.start == nil {
		s.start = startCommand
	}
	return s
}

// Request describes one batch-array submission.
type Request struct {
	// Identifier names the job, taken from the batch's definition.
	Identifier string

	// Dir is the batch directory sbatch runs relative to.
	Dir string

	// JobScript is the script name inside Dir.
	JobScript string

	// NumJobs sizes the array range 0..NumJobs-1. Must be positive.
	NumJobs int

	// AfterOK lists prerequisite job ids the array waits on.
	AfterOK []string
}

// Submit issues one sbatch array request and scans its output for the
// acknowledgement line. The acknowledged job id is persisted to the
// batch directory (rotating a previous copy) and returned for
// dependent submissions. In dry-run mode the command is logged and an
// empty id returned.
func (s *Submitter) Submit(ctx context.Context, req Request) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if req.NumJobs < 1 {
		return "", fmt.Errorf("submission %q: no jobs to submit", req.Identifier)
	}
	if req.NumJobs > maxArrayJobs {
		logger.Warn("Combination count exceeds the usual array job limit.",
			"identifier", req.Identifier, "jobs", req.NumJobs, "limit", maxArrayJobs)
	}

	argv := []string{
		s.sbatch,
		fmt.Sprintf("--array=0-%d", req.NumJobs-1),
		"--chdir=" + req.Dir,
		"--job-name=" + req.Identifier,
	}
	if len(req.AfterOK) > 0 {
		argv = append(argv, "--dependency=afterok:"+strings.Join(req.AfterOK, ","))
	}
	argv = append(argv, req.JobScript)

	if s.dryRun {
		logger.Info("Dry run, skipping submission.", "identifier", req.Identifier, "command", strings.Join(argv, " "))
		return "", nil
	}
	logger.Debug("Submitting batch.", "command", strings.Join(argv, " "))

	jobID, err := s.awaitAcknowledgement(ctx, req, argv)
	if err != nil {
		return "", err
	}

	if err := writeJobID(req.Dir, jobID); err != nil {
		return "", err
	}
	logger.Info("Submitted array job.", "identifier", req.Identifier, "job_id", jobID, "jobs", req.NumJobs)
	return jobID, nil
}

// awaitAcknowledgement runs the submission command and scans its output
// line by line until the acknowledgement appears or the bound expires.
func (s *Submitter) awaitAcknowledgement(ctx context.Context, req Request, argv []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, wait, err := s.start(ctx, req.Dir, argv)
	if err != nil {
		return "", fmt.Errorf("submission %q: %w", req.Identifier, err)
	}
	defer stdout.Close()

	capture, err := circbuf.NewBuffer(outputCaptureSize)
	if err != nil {
		return "", err
	}
	lines := linereader.New(io.TeeReader(stdout, capture))

	jobID := ""
scan:
	for {
		select {
		case line, ok := <-lines.Ch:
			if !ok {
				break scan
			}
			if m := ackRegex.FindStringSubmatch(line); m != nil && jobID == "" {
				jobID = m[ackRegex.SubexpIndex("job_id")]
			}
		case <-ctx.Done():
			// CommandContext kills the child; reap it in the background
			// so a wedged sbatch cannot also wedge the error path.
			go wait()
			return "", fmt.Errorf("%w: %s after %s", ErrSubmissionTimeout, req.Identifier, s.timeout)
		}
	}

	if err := wait(); err != nil {
		return "", fmt.Errorf("submission %q: %w (output: %q)", req.Identifier, err, capture.String())
	}
	if jobID == "" {
		return "", fmt.Errorf("%w: %s (output: %q)", ErrSubmissionFailure, req.Identifier, capture.String())
	}
	return jobID, nil
}

// startCommand is the production StartFunc: it launches the command
// with stdout and stderr merged into one pipe that reaches EOF when
// the process exits.
func startCommand(ctx context.Context, dir string, argv []string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, nil, err
	}
	w.Close()
	return r, cmd.Wait, nil
}

func writeJobID(dir, jobID string) error {
	path := filepath.Join(dir, jobIDFileName)
	if err := fsutil.RotateBounded(path, jobIDBackups); err != nil {
		return err
	}
	return fsutil.WriteFileNew(path, []byte(jobID))
}
