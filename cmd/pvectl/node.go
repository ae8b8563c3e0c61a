package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage cluster nodes",
	}
	cmd.AddCommand(newNodeListCmd())
	cmd.AddCommand(newNodeEditCmd())
	cmd.AddCommand(newNodeSetCmd())
	return cmd
}

func newNodeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cluster nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			refs, err := app.resolver.Nodes(cmd.Context())
			if err != nil {
				return err
			}

			out, err := app.formatter.FormatGuests(refs)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func newNodeEditCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "edit <node>",
		Short: "Edit a node's configuration interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			ref := pve.ResourceRef{Kind: pve.KindNode, Node: args[0]}
			res := app.editService(pve.KindNode, dryRun).Edit(cmd.Context(), ref)
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	return cmd
}

func newNodeSetCmd() *cobra.Command {
	var dryRun bool
	var deletions []string
	cmd := &cobra.Command{
		Use:   "set <node> <field=value>...",
		Short: "Set node configuration fields non-interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 && len(deletions) == 0 {
				return fmt.Errorf("nothing to change: pass field=value arguments or --delete")
			}
			values, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}

			ref := pve.ResourceRef{Kind: pve.KindNode, Node: args[0]}
			res := app.editService(pve.KindNode, dryRun).Set(cmd.Context(), ref, values, deletions)
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	cmd.Flags().StringArrayVar(&deletions, "delete", nil, "field to reset to its default (repeatable)")
	return cmd
}
