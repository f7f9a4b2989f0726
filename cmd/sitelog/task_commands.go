package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sitelog/internal/config"
	"sitelog/internal/store"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	taskCmd.AddCommand(newTaskListCommand(ctx))
	taskCmd.AddCommand(newTaskShowCommand(ctx))
	taskCmd.AddCommand(newTaskStatusCommand(ctx))

	return taskCmd
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List tasks for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				tasks, err := st.TasksByProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No tasks for this project.")
					return nil
				}
				fmt.Fprintln(out, renderTaskTable(tasks))
				return nil
			})
		},
	}
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task and its evidence links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				task, err := st.GetTask(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if task == nil {
					return fmt.Errorf("task %s not found", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Task:        %s\n", task.Title)
				fmt.Fprintf(out, "ID:          %s\n", task.ID)
				fmt.Fprintf(out, "Status:      %s (%s priority)\n", task.Status, task.Priority)
				fmt.Fprintf(out, "Created by:  %s\n", task.CreatedBy)
				if task.Confidence != nil {
					fmt.Fprintf(out, "Confidence:  %.2f\n", *task.Confidence)
				}
				if task.Description != "" {
					fmt.Fprintf(out, "Description: %s\n", task.Description)
				}
				if len(task.Tags) > 0 {
					fmt.Fprintf(out, "Tags:        %s\n", strings.Join(task.Tags, ", "))
				}

				links, err := st.LinksByTask(cmd.Context(), task.ID)
				if err != nil {
					return err
				}
				if len(links) > 0 {
					rows := make([][]string, 0, len(links))
					for _, l := range links {
						rows = append(rows, []string{
							l.ID,
							string(l.TargetType),
							l.TargetID,
							string(l.LinkType),
							fmt.Sprintf("%.2f", l.LinkScore),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"Link ID", "Target", "Target ID", "Type", "Score"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func newTaskStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Update a task status (open, in_progress, blocked, done)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseTaskStatus(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(cfg *config.Config, st *store.Store) error {
				if err := st.UpdateTaskStatus(cmd.Context(), args[0], status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], status)
				return nil
			})
		},
	}
}

func parseTaskStatus(value string) (store.TaskStatus, error) {
	status := store.TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case store.TaskOpen, store.TaskInProgress, store.TaskBlocked, store.TaskDone:
		return status, nil
	}
	return "", fmt.Errorf("unknown task status %q (open, in_progress, blocked, done)", value)
}
