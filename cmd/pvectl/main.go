// Command pvectl is an operator CLI for a Proxmox-style virtualization
// cluster: interactive configuration editing with optimistic
// concurrency, and batch lifecycle operations across VMs, containers
// and nodes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	configPath     string
	outputFormat   string
	noHeaders      bool
	editorOverride string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pvectl",
	Short: "pvectl - virtualization cluster management tool",
	Long: `pvectl is a CLI tool for managing VMs, containers and nodes of a
virtualization cluster through its HTTP API.

It provides interactive configuration editing with concurrent-change
detection, and batch lifecycle operations (start, stop, migrate, clone,
snapshot, backup, delete) across many guests at once.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/pvectl/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, yaml or json")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false, "omit headers in table output")
	rootCmd.PersistentFlags().StringVar(&editorOverride, "editor", "", "editor for interactive edits (default $VISUAL, $EDITOR, vi)")

	rootCmd.AddCommand(newVMCmd())
	rootCmd.AddCommand(newCTCmd())
	rootCmd.AddCommand(newNodeCmd())
	rootCmd.AddCommand(newVolumeCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newTaskCmd())
}
