package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect server-side tasks",
	}
	cmd.AddCommand(newTaskStatusCmd())
	cmd.AddCommand(newTaskWaitCmd())
	return cmd
}

func newTaskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <upid>",
		Short: "Show a task's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := pve.NodeFromUPID(args[0])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}

			task, err := app.poller.Find(cmd.Context(), node, args[0])
			if err != nil {
				return err
			}

			out, err := app.formatter.FormatTask(task)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func newTaskWaitCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait <upid>",
		Short: "Wait for a task to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := pve.NodeFromUPID(args[0])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}

			task, err := app.poller.Wait(cmd.Context(), node, args[0], timeout)
			if err != nil {
				return err
			}

			out, err := app.formatter.FormatTask(task)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(out)
			if !task.OK() {
				return fmt.Errorf("task finished with status %q", task.ExitStatus)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "how long to wait")
	return cmd
}
