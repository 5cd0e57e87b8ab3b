// Package cli implements the autosub command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/types"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to 2 and everything else to 1.
func exitCode(err error) int {
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		return 2
	}
	return 1
}

func formatError(err error) string {
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		return err.Error()
	}
	return "error: " + err.Error()
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "autosub <input>",
		Short: "Generate subtitles for a video or audio file",
		Long: "autosub detects speech in the input, transcribes every region concurrently,\n" +
			"optionally translates the text and writes a subtitle file next to the input.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.listSrc:
				return listLanguages(cmd.OutOrStdout(), sourceLanguages())
			case opts.listDst:
				return listLanguages(cmd.OutOrStdout(), targetLanguages())
			case len(args) == 0:
				return errors.New("missing <input> argument")
			}
			return run(cmd, opts, args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	opts.bindGlobal(root)
	opts.bindRun(root)

	root.AddCommand(
		newRegionsCommand(opts),
		newEnergiesCommand(opts),
		newConfigCommand(opts),
		newCacheCommand(opts),
	)
	return root
}
