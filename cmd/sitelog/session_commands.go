package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/session"
	"sitelog/internal/store"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage capture sessions",
	}

	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionEndCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))

	return sessionCmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var areaID string
	var areaType string
	var mode string
	var meeting bool
	var meetingType string
	var participants []string
	var consent bool
	var consentMethod string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a capture session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				parsedMode, ok := store.ParseCaptureMode(mode)
				if !ok {
					return fmt.Errorf("unknown capture mode %q (photo_speak, walkthrough, voice_only)", mode)
				}
				var parsedArea store.AreaType
				if strings.TrimSpace(areaType) != "" {
					parsedArea, ok = store.ParseAreaType(areaType)
					if !ok {
						return fmt.Errorf("unknown area type %q", areaType)
					}
				}

				req := session.StartRequest{
					ProjectID: projectID,
					AreaID:    areaID,
					AreaType:  parsedArea,
					Mode:      parsedMode,
				}
				if meeting {
					req.SessionType = store.SessionMeeting
					req.Meeting = &store.MeetingMetadata{
						MeetingType:      meetingType,
						Participants:     parseParticipants(participants),
						ConsentGiven:     consent,
						ConsentMethod:    consentMethod,
						ConsentTimestamp: time.Now().UnixMilli(),
					}
				}

				sess, err := ctx.sessionService(st).Start(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s session %s\n", sess.Mode, sess.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVar(&areaID, "area", "", "Area ID within the project")
	cmd.Flags().StringVar(&areaType, "area-type", "", "Area type (kitchen, bath, roof, ...)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(store.ModeWalkthrough), "Capture mode")
	cmd.Flags().BoolVar(&meeting, "meeting", false, "Record a meeting session")
	cmd.Flags().StringVar(&meetingType, "meeting-type", "", "Meeting type label")
	cmd.Flags().StringArrayVar(&participants, "participant", nil, "Meeting participant as name:role (repeatable)")
	cmd.Flags().BoolVar(&consent, "consent", false, "All participants consented to recording")
	cmd.Flags().StringVar(&consentMethod, "consent-method", "verbal", "How consent was collected")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func parseParticipants(values []string) []store.Participant {
	participants := make([]store.Participant, 0, len(values))
	for _, value := range values {
		name, role, _ := strings.Cut(value, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		participants = append(participants, store.Participant{
			Name: name,
			Role: strings.TrimSpace(role),
		})
	}
	return participants
}

func newSessionEndCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "end <session-id>",
		Short: "End a capture session and queue it for sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				sess, err := ctx.sessionService(st).End(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ended session %s (%s, %s)\n",
					sess.ID, countLabel(len(sess.MediaIDs), "media asset"), countLabel(len(sess.AudioIDs), "audio note"))
				return nil
			})
		},
	}
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List capture sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				var sessions []*store.CaptureSession
				var err error
				if strings.TrimSpace(projectID) != "" {
					sessions, err = st.SessionsByProject(cmd.Context(), projectID)
				} else {
					sessions, err = st.ListSessions(cmd.Context())
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(sessions) == 0 {
					fmt.Fprintln(out, "No sessions recorded.")
					return nil
				}

				rows := make([][]string, 0, len(sessions))
				for _, s := range sessions {
					rows = append(rows, []string{
						s.ID,
						s.ProjectID,
						string(s.Mode),
						string(s.SessionType),
						formatTime(s.StartedAt),
						formatOptionalTime(s.EndedAt),
						string(s.WebhookStatus),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Project", "Mode", "Type", "Started", "Ended", "Webhook"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Limit to one project")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show session details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				sess, err := st.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if sess == nil {
					return fmt.Errorf("session %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session:  %s\n", sess.ID)
				fmt.Fprintf(out, "Project:  %s\n", sess.ProjectID)
				fmt.Fprintf(out, "Mode:     %s (%s)\n", sess.Mode, sess.SessionType)
				fmt.Fprintf(out, "Started:  %s\n", formatTime(sess.StartedAt))
				fmt.Fprintf(out, "Ended:    %s\n", formatOptionalTime(sess.EndedAt))
				fmt.Fprintf(out, "Webhook:  %s\n", sess.WebhookStatus)
				fmt.Fprintf(out, "Media:    %s\n", idListLabel(sess.MediaIDs))
				fmt.Fprintf(out, "Audio:    %s\n", idListLabel(sess.AudioIDs))
				if sess.MeetingMetadata != nil {
					fmt.Fprintf(out, "Meeting:  %s, consent %s, approval %s\n",
						dashIfEmpty(sess.MeetingMetadata.MeetingType),
						yesNo(sess.MeetingMetadata.ConsentGiven),
						sess.ApprovalStatus)
				}
				if len(sess.WebhookResult) > 0 {
					fmt.Fprintf(out, "Result:   %d bytes of processed response stored\n", len(sess.WebhookResult))
				}
				return nil
			})
		},
	}
}

func idListLabel(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
