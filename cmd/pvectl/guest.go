package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/orchestrate"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// guestNoun is the human name of a guest kind used in help text.
func guestNoun(kind pve.Kind) string {
	if kind == pve.KindCT {
		return "container"
	}
	return "VM"
}

// newGuestListCmd lists guests of one kind.
func newGuestListCmd(kind pve.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss", guestNoun(kind)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			refs, err := app.resolver.ResolveAll(cmd.Context())
			if err != nil {
				return err
			}
			matching := refs[:0]
			for _, ref := range refs {
				if ref.Kind == kind {
					matching = append(matching, ref)
				}
			}

			out, err := app.formatter.FormatGuests(matching)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

// newLifecycleCmd builds one batch lifecycle command (start, stop, ...).
func newLifecycleCmd(kind pve.Kind, op lifecycle.Operation, short string) *cobra.Command {
	var batch batchFlags
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <id|name> [id|name...]", op),
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			refs, err := app.resolveGuests(cmd, kind, args)
			if err != nil {
				return err
			}

			results, err := app.dispatcher().Execute(cmd.Context(), op, refs, batch.lifecycleOptions())
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	batch.register(cmd)
	return cmd
}

func newGuestEditCmd(kind pve.Kind) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "edit <id|name>",
		Short: fmt.Sprintf("Edit a %s's configuration interactively", guestNoun(kind)),
		Long: fmt.Sprintf(`Open the %s's configuration in your editor, then apply exactly the
fields you changed. Concurrent modifications are detected server-side
and rejected. Closing the editor without changes cancels the edit.`, guestNoun(kind)),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			refs, err := app.resolveGuests(cmd, kind, args)
			if err != nil {
				return err
			}

			res := app.editService(kind, dryRun).Edit(cmd.Context(), refs[0])
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	return cmd
}

func newGuestSetCmd(kind pve.Kind) *cobra.Command {
	var dryRun bool
	var deletions []string
	cmd := &cobra.Command{
		Use:   "set <id|name> <field=value>...",
		Short: fmt.Sprintf("Set %s configuration fields non-interactively", guestNoun(kind)),
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
			refs, err := app.resolveGuests(cmd, kind, args[:1])
			if err != nil {
				return err
			}

			res := app.editService(kind, dryRun).Set(cmd.Context(), refs[0], values, deletions)
			return app.printResult(res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without applying them")
	cmd.Flags().StringArrayVar(&deletions, "delete", nil, "field to reset to its default (repeatable)")
	return cmd
}

func newGuestCloneCmd(kind pve.Kind) *cobra.Command {
	var (
		batch      batchFlags
		targetID   int
		name       string
		targetNode string
		linked     bool
		start      bool
		overrides  []string
	)
	cmd := &cobra.Command{
		Use:   "clone <id|name>",
		Short: fmt.Sprintf("Clone a %s", guestNoun(kind)),
		Long: fmt.Sprintf(`Clone a %s. Without --target-id the next free identifier is used;
without --name the clone is named after the source. --linked creates a
copy-on-write clone and requires a template source.`, guestNoun(kind)),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrideValues, err := parseAssignments(overrides)
			if err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}
			refs, err := app.resolveGuests(cmd, kind, args)
			if err != nil {
				return err
			}

			cloner := orchestrate.NewCloner(app.guests, app.poller)
			res := cloner.Clone(cmd.Context(), refs[0], orchestrate.CloneOptions{
				TargetID:   targetID,
				Name:       name,
				TargetNode: targetNode,
				Linked:     linked,
				Overrides:  overrideValues,
				Start:      start,
				Batch:      batch.batchOptions(),
			})
			return app.printResults([]result.OperationResult{res})
		},
	}
	cmd.Flags().IntVar(&targetID, "target-id", 0, "identifier for the clone (default: next free id)")
	cmd.Flags().StringVar(&name, "name", "", "name for the clone (default: derived from the source)")
	cmd.Flags().StringVar(&targetNode, "target-node", "", "node to place the clone on (default: source node)")
	cmd.Flags().BoolVar(&linked, "linked", false, "create a linked clone (template sources only)")
	cmd.Flags().BoolVar(&start, "start", false, "start the clone after creation")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "configuration override applied to the clone (field=value, repeatable)")
	batch.register(cmd)
	return cmd
}

func newGuestCreateCmd(kind pve.Kind) *cobra.Command {
	var (
		batch  batchFlags
		id     int
		node   string
		name   string
		start  bool
		disks  []string
		nets   []string
		mounts []string
		extra  []string
	)
	cmd := &cobra.Command{
		Use:   "create --node <node>",
		Short: fmt.Sprintf("Create a new %s", guestNoun(kind)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := orchestrate.CreateOptions{
				ID:    id,
				Node:  node,
				Name:  name,
				Start: start,
				Batch: batch.batchOptions(),
			}

			var err error
			if opts.Disks, err = parseDiskSpecs(disks); err != nil {
				return err
			}
			if opts.Nets, err = parseNetSpecs(nets); err != nil {
				return err
			}
			if opts.Mounts, err = parseMountSpecs(mounts); err != nil {
				return err
			}
			if opts.Extra, err = parseAssignments(extra); err != nil {
				return err
			}

			app, err := newApp()
			if err != nil {
				return err
			}

			res := orchestrate.NewCreator(app.guests, app.poller).Create(cmd.Context(), kind, opts)
			return app.printResults([]result.OperationResult{res})
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "guest identifier (default: next free id)")
	cmd.Flags().StringVar(&node, "node", "", "node to create the guest on")
	cmd.Flags().StringVar(&name, "name", "", "guest name")
	cmd.Flags().BoolVar(&start, "start", false, "start the guest after creation")
	cmd.Flags().StringArrayVar(&disks, "disk", nil, "disk spec storage:sizeGB[,opt=val...] (repeatable)")
	cmd.Flags().StringArrayVar(&nets, "net", nil, "network spec [model,]bridge=vmbr0[,opt=val...] (repeatable)")
	if kind == pve.KindCT {
		cmd.Flags().StringArrayVar(&mounts, "mount", nil, "mount spec storage:sizeGB,mp=/path (repeatable)")
	}
	cmd.Flags().StringArrayVar(&extra, "set", nil, "extra creation parameter (field=value, repeatable)")
	_ = cmd.MarkFlagRequired("node")
	batch.register(cmd)
	return cmd
}

func newGuestMigrateCmd(kind pve.Kind) *cobra.Command {
	var (
		batch  batchFlags
		target string
		online bool
	)
	cmd := &cobra.Command{
		Use:   "migrate <id|name> [id|name...] --target <node>",
		Short: fmt.Sprintf("Migrate %ss to another node", guestNoun(kind)),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			refs, err := app.resolveGuests(cmd, kind, args)
			if err != nil {
				return err
			}

			migrator := orchestrate.NewMigrator(app.dispatcher())
			results, err := migrator.Migrate(cmd.Context(), refs, target, orchestrate.MigrateOptions{
				Online: online,
				Batch:  batch.batchOptions(),
			})
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "destination node")
	cmd.Flags().BoolVar(&online, "online", false, "migrate without stopping the guest")
	_ = cmd.MarkFlagRequired("target")
	batch.register(cmd)
	return cmd
}

func newGuestDeleteCmd(kind pve.Kind) *cobra.Command {
	var (
		batch     batchFlags
		force     bool
		keepDisks bool
		purge     bool
	)
	cmd := &cobra.Command{
		Use:   "delete <id|name> [id|name...]",
		Short: fmt.Sprintf("Delete %ss", guestNoun(kind)),
		Long: fmt.Sprintf(`Delete %ss. Running guests are refused unless --force is given, which
stops them first.`, guestNoun(kind)),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			refs, err := app.resolveGuests(cmd, kind, args)
			if err != nil {
				return err
			}

			deleter := orchestrate.NewDeleter(app.guests, app.poller)
			results, err := deleter.Delete(cmd.Context(), refs, orchestrate.DeleteOptions{
				Force:     force,
				KeepDisks: keepDisks,
				Purge:     purge,
				Batch:     batch.batchOptions(),
			})
			if err != nil {
				return err
			}
			return app.printResults(results)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "stop running guests before deleting them")
	cmd.Flags().BoolVar(&keepDisks, "keep-disks", false, "leave unreferenced disks in place")
	cmd.Flags().BoolVar(&purge, "purge", false, "also remove the guest from backup jobs and HA config")
	batch.register(cmd)
	return cmd
}

// addGuestCommands attaches the shared guest subcommands for one kind.
func addGuestCommands(parent *cobra.Command, kind pve.Kind) {
	noun := guestNoun(kind)
	parent.AddCommand(newGuestListCmd(kind))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpStart, "Start "+noun+"s"))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpStop, "Force-stop "+noun+"s"))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpShutdown, "Shut "+noun+"s down gracefully"))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpRestart, "Restart "+noun+"s"))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpSuspend, "Suspend "+noun+"s"))
	parent.AddCommand(newLifecycleCmd(kind, lifecycle.OpResume, "Resume "+noun+"s"))
	parent.AddCommand(newGuestEditCmd(kind))
	parent.AddCommand(newGuestSetCmd(kind))
	parent.AddCommand(newGuestCloneCmd(kind))
	parent.AddCommand(newGuestCreateCmd(kind))
	parent.AddCommand(newGuestMigrateCmd(kind))
	parent.AddCommand(newGuestDeleteCmd(kind))
}

// parseDiskSpecs parses --disk values of the form
// "storage:sizeGB[,opt=val...]".
func parseDiskSpecs(specs []string) ([]orchestrate.DiskSpec, error) {
	disks := make([]orchestrate.DiskSpec, 0, len(specs))
	for _, spec := range specs {
		base, opts, err := splitSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid --disk %q: %w", spec, err)
		}
		storage, sizeGB, err := parseStorageSize(base)
		if err != nil {
			return nil, fmt.Errorf("invalid --disk %q: %w", spec, err)
		}
		disks = append(disks, orchestrate.DiskSpec{Storage: storage, SizeGB: sizeGB, Options: opts})
	}
	return disks, nil
}

// parseNetSpecs parses --net values of the form
// "[model,]bridge=vmbr0[,opt=val...]".
func parseNetSpecs(specs []string) ([]orchestrate.NetSpec, error) {
	nets := make([]orchestrate.NetSpec, 0, len(specs))
	for _, spec := range specs {
		net := orchestrate.NetSpec{Options: map[string]string{}}
		for i, part := range strings.Split(spec, ",") {
			key, value, ok := strings.Cut(part, "=")
			switch {
			case !ok && i == 0:
				net.Model = part
			case !ok:
				return nil, fmt.Errorf("invalid --net %q: expected opt=val, got %q", spec, part)
			case key == "bridge":
				net.Bridge = value
			default:
				net.Options[key] = value
			}
		}
		if net.Bridge == "" {
			return nil, fmt.Errorf("invalid --net %q: bridge is required", spec)
		}
		if len(net.Options) == 0 {
			net.Options = nil
		}
		nets = append(nets, net)
	}
	return nets, nil
}

// parseMountSpecs parses --mount values of the form
// "storage:sizeGB,mp=/path".
func parseMountSpecs(specs []string) ([]orchestrate.MountSpec, error) {
	mounts := make([]orchestrate.MountSpec, 0, len(specs))
	for _, spec := range specs {
		base, opts, err := splitSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid --mount %q: %w", spec, err)
		}
		storage, sizeGB, err := parseStorageSize(base)
		if err != nil {
			return nil, fmt.Errorf("invalid --mount %q: %w", spec, err)
		}
		path := opts["mp"]
		if path == "" {
			return nil, fmt.Errorf("invalid --mount %q: mp=/path is required", spec)
		}
		mounts = append(mounts, orchestrate.MountSpec{Storage: storage, SizeGB: sizeGB, Path: path})
	}
	return mounts, nil
}

func splitSpec(spec string) (base string, opts map[string]string, err error) {
	parts := strings.Split(spec, ",")
	base = parts[0]
	if len(parts) == 1 {
		return base, nil, nil
	}
	opts = make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return "", nil, fmt.Errorf("expected opt=val, got %q", part)
		}
		opts[key] = value
	}
	return base, opts, nil
}

func parseStorageSize(base string) (string, int, error) {
	storage, size, ok := strings.Cut(base, ":")
	if !ok || storage == "" {
		return "", 0, fmt.Errorf("expected storage:sizeGB, got %q", base)
	}
	sizeGB, err := strconv.Atoi(size)
	if err != nil || sizeGB <= 0 {
		return "", 0, fmt.Errorf("size must be a positive integer, got %q", size)
	}
	return storage, sizeGB, nil
}
