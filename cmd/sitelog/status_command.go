package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show overall system status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				settings, err := st.LoadSettings(cmd.Context(), cfg.Webhook.URL)
				if err != nil {
					return err
				}
				counts, err := st.SessionSyncCounts(cmd.Context())
				if err != nil {
					return err
				}

				for _, line := range renderSectionHeader("Sitelog Status", colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Database", statusOK, st.Path(), colorize))

				webhookKind := statusOK
				if settings.WebhookURL == "" {
					webhookKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Webhook", webhookKind, dashIfEmpty(settings.WebhookURL), colorize))
				fmt.Fprintln(out, renderStatusLine("Auto sync", statusInfo, yesNo(settings.AutoSync), colorize))
				fmt.Fprintln(out, renderStatusLine("Wifi-only upload", statusInfo, yesNo(settings.WifiOnlyUpload), colorize))

				storageMessage := "disabled"
				if cfg.Storage.Enabled {
					storageMessage = cfg.Storage.Endpoint + "/" + cfg.Storage.Bucket
				}
				fmt.Fprintln(out, renderStatusLine("Object storage", statusInfo, storageMessage, colorize))

				notifyMessage := "disabled"
				notifyKind := statusInfo
				if cfg.Notifications.NtfyTopic != "" {
					notifyMessage = cfg.Notifications.NtfyTopic
					notifyKind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine("Notifications", notifyKind, notifyMessage, colorize))

				pendingKind := statusOK
				if counts.Pending > 0 {
					pendingKind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Sessions", pendingKind,
					fmt.Sprintf("%d pending / %d synced / %d total", counts.Pending, counts.Synced, counts.Total), colorize))
				return nil
			})
		},
	}
}
