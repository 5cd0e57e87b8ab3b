package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/domain/vad"
	"github.com/forPelevin/autosub/internal/pipeline"
)

func newRegionsCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "regions <input>",
		Short: "Print the speech regions detected in the input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, err := inspectConfig(cmd, opts, args[0])
			if err != nil {
				return err
			}
			regions, err := pipeline.Regions(cmd.Context(), pcfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				type region struct {
					Index int     `json:"index"`
					Start float64 `json:"start"`
					End   float64 `json:"end"`
				}
				rows := make([]region, 0, len(regions))
				for _, r := range regions {
					rows = append(rows, region{Index: r.Index, Start: r.Start.Seconds(), End: r.End.Seconds()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			fmt.Fprintln(out, pipeline.RenderRegions(regions))
			fmt.Fprintf(out, "%d regions\n", len(regions))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print regions as JSON")
	return cmd
}

func newEnergiesCommand(opts *options) *cobra.Command {
	var percentile float64
	cmd := &cobra.Command{
		Use:   "energies <input>",
		Short: "Print the RMS energy of every analysis window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, err := inspectConfig(cmd, opts, args[0])
			if err != nil {
				return err
			}
			energies, err := pipeline.Energies(cmd.Context(), pcfg)
			if err != nil {
				return err
			}
			width := pcfg.Settings.VADOptions().FrameWidth
			out := cmd.OutOrStdout()
			for i, e := range energies {
				fmt.Fprintf(out, "%.3f\t%.2f\n", (width * time.Duration(i)).Seconds(), e)
			}
			if !cmd.Flags().Changed("percentile") {
				percentile = pcfg.Settings.VAD.EnergyThresholdPercentile
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "threshold (p%g): %.2f\n", percentile, vad.Percentile(energies, percentile))
			return nil
		},
	}
	cmd.Flags().Float64Var(&percentile, "percentile", 0, "Percentile to report as the voice threshold (default from config)")
	return cmd
}

func inspectConfig(cmd *cobra.Command, opts *options, input string) (pipeline.Config, error) {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return pipeline.Config{}, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return pipeline.Config{}, err
	}
	absIn, err := filepath.Abs(input)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{Settings: cfg, Input: absIn, Logger: logger}, nil
}
