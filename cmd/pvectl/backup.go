package main

import (
	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/orchestrate"
)

func newBackupCmd() *cobra.Command {
	var (
		batch    batchFlags
		storage  string
		mode     string
		compress string
		notes    string
	)
	cmd := &cobra.Command{
		Use:   "backup --storage <storage> [id|name...]",
		Short: "Back guests up",
		Long: `Create vzdump backups of the listed guests, or of every guest in the
cluster when none are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			backuper := orchestrate.NewBackuper(app.guests, app.poller, app.resolver)
			results, err := backuper.Create(cmd.Context(), args, orchestrate.BackupOptions{
				Storage:  storage,
				Mode:     mode,
				Compress: compress,
				Notes:    notes,
				Batch:    batch.batchOptions(),
			})
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().StringVar(&storage, "storage", "", "target storage for the archives")
	cmd.Flags().StringVar(&mode, "mode", "", "consistency mode: snapshot, suspend or stop")
	cmd.Flags().StringVar(&compress, "compress", "", "archive compression, e.g. zstd")
	cmd.Flags().StringVar(&notes, "notes", "", "notes attached to the archives")
	_ = cmd.MarkFlagRequired("storage")
	batch.register(cmd)
	return cmd
}
