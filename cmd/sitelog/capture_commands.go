package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/store"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Record media and audio into a live session",
	}

	captureCmd.AddCommand(newCapturePhotoCommand(ctx))
	captureCmd.AddCommand(newCaptureVideoCommand(ctx))
	captureCmd.AddCommand(newCaptureAudioCommand(ctx))
	captureCmd.AddCommand(newCaptureAttachCommand(ctx))

	return captureCmd
}

func newCapturePhotoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "photo <session-id> <uri>",
		Short: "Add a photo to a live session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				asset, err := ctx.sessionService(st).CapturePhoto(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Captured photo %s\n", asset.ID)
				return nil
			})
		},
	}
}

func newCaptureVideoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "video <session-id> <uri>",
		Short: "Add a video to a live session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				asset, err := ctx.sessionService(st).CaptureVideo(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Captured video %s\n", asset.ID)
				return nil
			})
		},
	}
}

func newCaptureAudioCommand(ctx *commandContext) *cobra.Command {
	var durationMs int64
	var linkedMediaID string

	cmd := &cobra.Command{
		Use:   "audio <session-id> <uri>",
		Short: "Add a voice note to a live session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				note, err := ctx.sessionService(st).CaptureAudio(cmd.Context(), args[0], args[1], durationMs, linkedMediaID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Captured audio note %s\n", note.ID)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&durationMs, "duration", 0, "Recording duration in milliseconds")
	cmd.Flags().StringVar(&linkedMediaID, "linked-media", "", "Media asset this note narrates")
	return cmd
}

func newCaptureAttachCommand(ctx *commandContext) *cobra.Command {
	var mediaID string
	var audioID string

	cmd := &cobra.Command{
		Use:   "attach <session-id>",
		Short: "Attach an existing asset to a live session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mediaID == "" && audioID == "" {
				return fmt.Errorf("one of --media or --audio is required")
			}
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				svc := ctx.sessionService(st)
				out := cmd.OutOrStdout()
				if mediaID != "" {
					if err := svc.AttachMedia(cmd.Context(), args[0], mediaID); err != nil {
						return err
					}
					fmt.Fprintf(out, "Attached media %s to session %s\n", mediaID, args[0])
				}
				if audioID != "" {
					if err := svc.AttachAudio(cmd.Context(), args[0], audioID); err != nil {
						return err
					}
					fmt.Fprintf(out, "Attached audio %s to session %s\n", audioID, args[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mediaID, "media", "", "Media asset ID to attach")
	cmd.Flags().StringVar(&audioID, "audio", "", "Audio note ID to attach")
	return cmd
}
