package main

import (
	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

func newVMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Manage virtual machines",
	}
	addGuestCommands(cmd, pve.KindVM)
	return cmd
}
