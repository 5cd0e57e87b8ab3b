package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/autosub/internal/cache"
	"github.com/forPelevin/autosub/internal/config"
)

func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	open := func(cmd *cobra.Command) (*cache.Store, error) {
		cfg, _, _, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		path := cfg.Cache.Path
		if path == "" {
			if path, err = cache.DefaultPath(); err != nil {
				return nil, err
			}
		}
		return cache.Open(cmd.Context(), path)
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and hit counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			st, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:    %s\n", store.Path())
			fmt.Fprintf(out, "entries: %s\n", humanize.Comma(int64(st.Entries)))
			fmt.Fprintf(out, "hits:    %s\n", humanize.Comma(int64(st.Hits)))
			fmt.Fprintf(out, "size:    %s\n", humanize.Bytes(uint64(st.Bytes)))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached results older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			cutoff := time.Now().Add(-olderThan)
			n, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s entries cached before %s\n", humanize.Comma(n), humanize.Time(cutoff))
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age threshold")

	cmd.AddCommand(stats, clearCmd, prune)
	return cmd
}
