package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/config"
)

func newConfigCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var force bool
	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := path
			if target == "" {
				target = opts.configPath
			}
			var err error
			if target == "" {
				target, err = config.DefaultConfigPath()
			} else {
				target, err = config.ExpandPath(target)
			}
			if err != nil {
				return err
			}
			if err := config.CreateSample(target, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	initCmd.Flags().StringVar(&path, "path", "", "Where to write the file (default ~/.config/autosub/config.toml)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration path and providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, resolved, exists, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := "not found, using defaults"
			if exists {
				state = "loaded"
			}
			fmt.Fprintf(out, "file:          %s (%s)\n", resolved, state)
			fmt.Fprintf(out, "languages:     %s -> %s\n", cfg.Language.Source, orSame(cfg.Language.Target, cfg.Language.Source))
			fmt.Fprintf(out, "transcription: %s\n", cfg.Transcription.Provider)
			if cfg.Translates() {
				fmt.Fprintf(out, "translation:   %s\n", cfg.Translation.Provider)
			}
			fmt.Fprintf(out, "format:        %s\n", cfg.Output.Format)
			if cfg.Cache.Enabled {
				fmt.Fprintf(out, "cache:         %s\n", cfg.Cache.Path)
			} else {
				fmt.Fprintln(out, "cache:         disabled")
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func orSame(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
