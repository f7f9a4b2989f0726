package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/payload"
	"sitelog/internal/store"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))

	return projectCmd
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var address string
	var clientName string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with its default areas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				project, err := st.CreateProject(cmd.Context(), args[0], address, clientName)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Name, project.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Project street address")
	cmd.Flags().StringVar(&clientName, "client", "", "Client name")
	return cmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				projects, err := st.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(projects) == 0 {
					fmt.Fprintln(out, "No projects yet. Create one with `sitelog project create`.")
					return nil
				}

				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{
						p.ID,
						truncate(p.Name, 32),
						strconv.Itoa(p.MediaCount),
						fmt.Sprintf("%d (%d open)", p.TaskCount, p.OpenTaskCount),
						formatTime(p.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Media", "Tasks", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show project details, areas, and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				project, err := st.GetProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if project == nil {
					return fmt.Errorf("project %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Project: %s\n", project.Name)
				fmt.Fprintf(out, "ID:      %s\n", project.ID)
				fmt.Fprintf(out, "Address: %s\n", dashIfEmpty(project.Address))
				fmt.Fprintf(out, "Client:  %s\n", dashIfEmpty(project.ClientName))
				fmt.Fprintf(out, "Media:   %d\n", project.MediaCount)
				fmt.Fprintf(out, "Tasks:   %d (%d open)\n", project.TaskCount, project.OpenTaskCount)

				areas, err := st.AreasByProject(cmd.Context(), project.ID)
				if err != nil {
					return err
				}
				if len(areas) > 0 {
					rows := make([][]string, 0, len(areas))
					for _, a := range areas {
						rows = append(rows, []string{a.ID, string(a.Type), a.Label})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"Area ID", "Type", "Label"},
						rows,
						nil,
					))
				}

				tasks, err := st.TasksByProject(cmd.Context(), project.ID)
				if err != nil {
					return err
				}
				if len(tasks) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTaskTable(tasks))
				}
				return nil
			})
		},
	}
}

func renderTaskTable(tasks []*store.TaskItem) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		area := string(t.AreaType)
		if area != "" {
			area = payload.AreaLabel(t.AreaType)
		} else {
			area = "-"
		}
		rows = append(rows, []string{
			t.ID,
			truncate(t.Title, 40),
			string(t.Status),
			string(t.Priority),
			area,
			string(t.CreatedBy),
		})
	}
	return renderTable(
		[]string{"Task ID", "Title", "Status", "Priority", "Area", "By"},
		rows,
		nil,
	)
}
