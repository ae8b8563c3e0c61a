package main

import (
	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

func newCTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ct",
		Short: "Manage LXC containers",
	}
	addGuestCommands(cmd, pve.KindCT)
	return cmd
}
