package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/naming"
	"github.com/pwojcieszonek/pvectl/internal/orchestrate"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage guest snapshots",
		Long: `Create, delete and roll back guest snapshots. Commands operate on the
listed guests, or on every guest in the cluster when none are given.`,
	}
	cmd.AddCommand(newSnapshotCreateCmd())
	cmd.AddCommand(newSnapshotDeleteCmd())
	cmd.AddCommand(newSnapshotRollbackCmd())
	return cmd
}

func (a *app) snapshotter() *orchestrate.Snapshotter {
	return orchestrate.NewSnapshotter(a.guests, a.poller, a.resolver)
}

func newSnapshotCreateCmd() *cobra.Command {
	var (
		batch       batchFlags
		name        string
		description string
		vmstate     bool
	)
	cmd := &cobra.Command{
		Use:   "create [id|name...]",
		Short: "Snapshot guests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = naming.SnapshotName(time.Now())
			}

			app, err := newApp()
			if err != nil {
				return err
			}

			results, err := app.snapshotter().Create(cmd.Context(), args, name, orchestrate.SnapshotOptions{
				Description: description,
				VMState:     vmstate,
				Batch:       batch.batchOptions(),
			})
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: timestamped)")
	cmd.Flags().StringVar(&description, "description", "", "snapshot description")
	cmd.Flags().BoolVar(&vmstate, "vmstate", false, "include running VM memory in the snapshot")
	batch.register(cmd)
	return cmd
}

func newSnapshotDeleteCmd() *cobra.Command {
	var batch batchFlags
	var name string
	cmd := &cobra.Command{
		Use:   "delete --name <snapshot> [id|name...]",
		Short: "Delete a snapshot from guests",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			results, err := app.snapshotter().Delete(cmd.Context(), args, name, batch.batchOptions())
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	_ = cmd.MarkFlagRequired("name")
	batch.register(cmd)
	return cmd
}

func newSnapshotRollbackCmd() *cobra.Command {
	var batch batchFlags
	var name string
	cmd := &cobra.Command{
		Use:   "rollback --name <snapshot> [id|name...]",
		Short: "Roll guests back to a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			results, err := app.snapshotter().Rollback(cmd.Context(), args, name, batch.batchOptions())
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name")
	_ = cmd.MarkFlagRequired("name")
	batch.register(cmd)
	return cmd
}
