package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/app"
	"github.com/JakeFAU/movie-harvester/internal/id/uuid"
	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// runFlags are the per-run overrides shared by the one-shot commands.
type runFlags struct {
	languages []string
	year      int
	maxPages  int
	load      bool
}

func (f *runFlags) bind(cmd *cobra.Command, withLanguages bool) {
	if withLanguages {
		cmd.Flags().StringSliceVar(&f.languages, "languages", nil, "original languages to harvest (default from config)")
		cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "maximum discovery pages per language (default from config)")
	}
	cmd.Flags().IntVar(&f.year, "year", 0, "release year (default from config)")
	cmd.Flags().BoolVar(&f.load, "load", false, "normalize and bulk load into Postgres after the run")
}

func (f *runFlags) params() runs.Parameters {
	return runs.Parameters{
		Languages: f.languages,
		Year:      f.year,
		MaxPages:  f.maxPages,
		Load:      f.load,
	}
}

// runOnce builds the services, executes one run in-process and logs the
// outcome.
func runOnce(cmd *cobra.Command, kind runs.Kind, params runs.Parameters) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	if kind != runs.KindNormalize {
		if err := e.cfg.RequireTMDB(); err != nil {
			return err
		}
	}

	services, err := app.New(cmd.Context(), e.cfg, e.logger)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	defer services.Close()

	id, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	log := e.logger.With(zap.String("run_id", id), zap.String("kind", string(kind)))
	log.Info("run started", zap.Any("parameters", params))

	out, err := services.Pipeline().Execute(cmd.Context(), runs.QueueItem{RunID: id, Kind: kind, Params: params})
	log.Info("run finished",
		zap.Int("candidates", out.Counters.Candidates),
		zap.Int("records", out.Counters.Records),
		zap.Int("partial", out.Counters.Partial),
		zap.Int("unmatched", out.Counters.Unmatched),
		zap.Int("facts", out.Counters.Facts),
		zap.Int("skipped", out.Counters.Skipped),
		zap.Strings("artifacts", out.Artifacts),
	)
	if err != nil {
		return fmt.Errorf("%s run: %w", kind, err)
	}
	return nil
}
