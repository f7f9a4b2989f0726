package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/store"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Deliver ended sessions to the processing webhook",
	}

	syncCmd.AddCommand(newSyncNowCommand(ctx))
	syncCmd.AddCommand(newSyncRetryCommand(ctx))
	syncCmd.AddCommand(newSyncStatusCommand(ctx))

	return syncCmd
}

func newSyncNowCommand(ctx *commandContext) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "now",
		Short: "Sync all pending sessions, or one session with --session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				dispatcher, sync, err := ctx.newPipeline(cfg, st)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if strings.TrimSpace(sessionID) != "" {
					if !dispatcher.Send(cmd.Context(), sessionID) {
						return fmt.Errorf("webhook delivery failed for session %s", sessionID)
					}
					fmt.Fprintf(out, "Session %s synced\n", sessionID)
					return nil
				}

				synced, err := sync.SyncPendingSessions(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Synced %s\n", countLabel(synced, "session"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Sync a single session by ID")
	return cmd
}

func newSyncRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry sessions whose webhook delivery failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				_, sync, err := ctx.newPipeline(cfg, st)
				if err != nil {
					return err
				}
				synced, err := sync.RetryFailedItems(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recovered %s\n", countLabel(synced, "session"))
				return nil
			})
		},
	}
}

func newSyncStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session sync counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				counts, err := st.SessionSyncCounts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Pending", "Synced", "Total"},
					[][]string{{
						strconv.Itoa(counts.Pending),
						strconv.Itoa(counts.Synced),
						strconv.Itoa(counts.Total),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
