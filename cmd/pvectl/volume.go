package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/edit"
)

func newVolumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Manage guest volumes",
		Long: `Manage the disk devices of VMs and containers. A volume is addressed
by its owning guest plus the disk key of the device entry (scsi0,
virtio1, rootfs, mp0, ...).

Volume size can only grow. Use an absolute size ("64G") or a relative
increment ("+1G").`,
	}
	cmd.AddCommand(newVolumeEditCmd())
	cmd.AddCommand(newVolumeSetCmd())
	cmd.AddCommand(newVolumeResizeCmd())
	return cmd
}

func newVolumeResizeCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "resize <id|name> <disk> <size>",
		Short: "Grow a volume",
		Long: `Grow a volume to an absolute size ("64G") or by a relative increment
("+8G"). Shrinking is refused.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ref, err := app.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ref == nil {
				return fmt.Errorf("no guest named %q", args[0])
			}

			res := app.volumeService(dryRun).Set(cmd.Context(), *ref, args[1],
				map[string]any{"size": args[2]}, nil)
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	return cmd
}

func (a *app) volumeService(dryRun bool) *edit.VolumeService {
	svc := edit.NewVolumeService(a.guests, a.session())
	svc.DryRun = dryRun
	return svc
}

func newVolumeEditCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "edit <id|name> <disk>",
		Short: "Edit a volume's options interactively",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			ref, err := app.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ref == nil {
				return fmt.Errorf("no guest named %q", args[0])
			}

			res := app.volumeService(dryRun).Edit(cmd.Context(), *ref, args[1])
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	return cmd
}

func newVolumeSetCmd() *cobra.Command {
	var dryRun bool
	var deletions []string
	cmd := &cobra.Command{
		Use:   "set <id|name> <disk> <field=value>...",
		Short: "Set volume options non-interactively",
		Long: `Set volume options without an editor, e.g.:

  pvectl volume set 100 scsi0 size=+8G
  pvectl volume set web-01 scsi0 ssd=1 --delete backup`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 && len(deletions) == 0 {
				return fmt.Errorf("nothing to change: pass field=value arguments or --delete")
			}
			values, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			ref, err := app.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ref == nil {
				return fmt.Errorf("no guest named %q", args[0])
			}

			res := app.volumeService(dryRun).Set(cmd.Context(), *ref, args[1], values, deletions)
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	cmd.Flags().StringArrayVar(&deletions, "delete", nil, "option to remove from the device entry (repeatable)")
	return cmd
}
