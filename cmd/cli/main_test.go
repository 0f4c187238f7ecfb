package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjordsim/sweepforge/internal/materialize"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_DryRunEndToEnd(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	jobScript := write("jobscript.sh", "#!/bin/sh\n")
	write("program_3d", "binary\n")
	configFile := write("config.json", `{
    "physics": {
        "pressure": 1.0 // overwritten per run
    }
}
`)
	inputsFile := write("sim.inputs", "Random.seed = 0\n")

	runDef := write("run_definition.json", fmt.Sprintf(`{
    "studies": [
        {
            "identifier": "smoke",
            "job_script": %q,
            "program": %q,
            "output_directory": "smoke_study",
            "required_files": [%q, %q],
            "parameter_space": {
                "pressure": {"target": "config.json", "uri": ["physics", "pressure"], "values": [1e5, 2e5]},
                "seed_note": {"values": ["a"]}
            }
        }
    ]
}
`, jobScript, filepath.Join(tempDir, "program_{DIMENSIONALITY}d"), configFile, inputsFile))

	outputDir := filepath.Join(tempDir, "results")
	out := &bytes.Buffer{}
	err := run(out, []string{
		"--dry-run",
		"--output-dir", outputDir,
		"--logfile", filepath.Join(tempDir, "test.log"),
		runDef,
	})
	require.NoError(t, err)

	studyDir := filepath.Join(outputDir, "smoke_study")
	require.DirExists(t, studyDir)
	assert.FileExists(t, filepath.Join(studyDir, "structure.json"))
	assert.FileExists(t, filepath.Join(studyDir, "jobscript_symlink"))
	assert.FileExists(t, filepath.Join(studyDir, "program_3d"))

	index, err := materialize.LoadIndex(filepath.Join(studyDir, "index.json"))
	require.NoError(t, err)
	assert.Equal(t, "run_", index.Prefix)
	assert.Equal(t, []string{"pressure", "seed_note"}, index.Keys)
	require.Len(t, index.Rows, 2)

	// both run directories materialized with their pressure patched in
	run0 := filepath.Join(studyDir, "run_0")
	require.DirExists(t, run0)
	require.DirExists(t, filepath.Join(studyDir, "run_1"))
	patched, err := os.ReadFile(filepath.Join(run0, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(patched), `"pressure": 1e5`)

	// dry run: nothing was submitted
	assert.NoFileExists(t, filepath.Join(studyDir, "array_job_id"))

	assert.FileExists(t, filepath.Join(tempDir, "test.log"))
}
