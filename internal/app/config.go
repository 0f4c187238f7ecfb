package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to
// run.
type Config struct {
	// RunDefinition is the path to the run definition file.
	RunDefinition string

	// OutputDir is the root directory all batches materialize under.
	OutputDir string

	// Dim is the simulation dimensionality substituted into program
	// paths.
	Dim int

	// DryRun materializes everything but skips scheduler submission.
	DryRun bool

	Logfile       string
	LogFormat     string
	LogLevel      string
	SubmitTimeout time.Duration
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.RunDefinition == "" {
		return nil, errors.New("RunDefinition is a required configuration field and cannot be empty")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OutputDir is a required configuration field and cannot be empty")
	}
	if cfg.Dim < 1 {
		return nil, errors.New("Dim must be at least 1")
	}
	return &cfg, nil
}
