package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"adprint/internal/infra"
	"adprint/internal/quota"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var timeout time.Duration
	root := &cobra.Command{
		Use:   "quota",
		Short: "Inspect or adjust the free-creation counter",
		Long: `Inspect or adjust the persisted free-creation counter.

The store is selected with the same environment as the API
(QUOTA_STORE, DATA_DIR, SQLITE_PATH, DATABASE_URL, QUOTA_KEY).`,
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "deadline for store access")

	root.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the current count and remaining creations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(cmd, timeout, func(ctx context.Context, cfg *infra.Config, store quota.Store) error {
					count, err := store.Load(ctx)
					if err != nil {
						return fmt.Errorf("load count: %w", err)
					}
					remaining := max(cfg.QuotaCeiling-count, 0)
					fmt.Fprintf(cmd.OutOrStdout(), "store=%s key=%s count=%d ceiling=%d remaining=%d\n",
						cfg.QuotaStore, cfg.QuotaKey, count, cfg.QuotaCeiling, remaining)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <count>",
			Short: "Overwrite the stored count",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("count must be a non-negative integer, got %q", args[0])
				}
				return saveCount(cmd, timeout, n)
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Reset the stored count to zero",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return saveCount(cmd, timeout, 0)
			},
		},
	)
	return root
}

func saveCount(cmd *cobra.Command, timeout time.Duration, n int) error {
	return withStore(cmd, timeout, func(ctx context.Context, cfg *infra.Config, store quota.Store) error {
		if err := store.Save(ctx, n); err != nil {
			return fmt.Errorf("save count: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store=%s key=%s count=%d\n", cfg.QuotaStore, cfg.QuotaKey, n)
		return nil
	})
}

func withStore(cmd *cobra.Command, timeout time.Duration, fn func(context.Context, *infra.Config, quota.Store) error) error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "quota").Logger()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, closeStore, err := quota.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.QuotaStore, err)
	}
	defer closeStore()
	return fn(ctx, cfg, store)
}
