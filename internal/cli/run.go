package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/pipeline"
)

func run(cmd *cobra.Command, opts *options, input string) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	regionsFrom := opts.regionsFrom
	if regionsFrom != "" {
		if regionsFrom, err = filepath.Abs(regionsFrom); err != nil {
			return err
		}
	}

	sum, err := pipeline.Run(cmd.Context(), pipeline.Config{
		Settings:    cfg,
		Input:       absIn,
		RegionsFrom: regionsFrom,
		Logger:      logger,
		Report:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	if sum.OutputPath != pipeline.StdoutPath {
		fmt.Fprintf(cmd.ErrOrStderr(), "Subtitles: %s (%d regions, %d failed)\n", sum.OutputPath, sum.Regions, sum.Failed)
	}
	return nil
}
