package app

import (
	"context"
	"fmt"

	"github.com/fjordsim/sweepforge/internal/ctxlog"
	"github.com/fjordsim/sweepforge/internal/definition"
	"github.com/fjordsim/sweepforge/internal/slurm"
	"github.com/fjordsim/sweepforge/internal/study"
)

// Run executes the main application logic based on the provided
// configuration: load and verify the run definition, then materialize
// and submit its databases and studies.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	def, err := definition.Load(cfg.RunDefinition)
	if err != nil {
		return fmt.Errorf("failed to load run definition: %w", err)
	}
	a.logger.Info("Run definition loaded.",
		"file", cfg.RunDefinition, "databases", len(def.Databases), "studies", len(def.Studies))

	submitter := slurm.New(slurm.Options{
		Timeout: cfg.SubmitTimeout,
		DryRun:  cfg.DryRun,
	})

	err = study.Setup(ctx, def, study.Options{
		OutputDir: cfg.OutputDir,
		Dim:       cfg.Dim,
		Submitter: submitter,
	})
	if err != nil {
		return fmt.Errorf("study setup failed: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
