package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwojcieszonek/pvectl/internal/api"
	"github.com/pwojcieszonek/pvectl/internal/config"
	"github.com/pwojcieszonek/pvectl/internal/document"
	"github.com/pwojcieszonek/pvectl/internal/edit"
	"github.com/pwojcieszonek/pvectl/internal/editor"
	"github.com/pwojcieszonek/pvectl/internal/lifecycle"
	"github.com/pwojcieszonek/pvectl/internal/orchestrate"
	"github.com/pwojcieszonek/pvectl/internal/output"
	"github.com/pwojcieszonek/pvectl/internal/pve"
	"github.com/pwojcieszonek/pvectl/internal/result"
)

// app bundles the wired collaborators every command needs.
type app struct {
	cfg       *config.Config
	guests    *api.GuestRepository
	nodes     *api.NodeRepository
	poller    *api.TaskPoller
	resolver  *api.Resolver
	formatter output.Formatter
}

// newApp loads configuration, connects the API client and builds the
// output formatter from the global flags.
func newApp() (*app, error) {
	if err := output.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	formatter, err := output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		guests:    api.NewGuestRepository(client),
		nodes:     api.NewNodeRepository(client),
		poller:    api.NewTaskPoller(client),
		resolver:  api.NewResolver(client),
		formatter: formatter,
	}, nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	path := config.DefaultPath()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return config.LoadFromFile(path)
		}
	}
	return config.LoadFromEnv()
}

// session builds an interactive editor session. The --editor flag wins
// over the configured editor, which wins over the environment.
func (a *app) session() *editor.Session {
	editorCmd := editorOverride
	if editorCmd == "" {
		editorCmd = a.cfg.Editor
	}
	s := editor.NewSession(editor.NewExecLauncher(editorCmd))
	s.Validate = func(text string) error {
		_, err := document.Parse(text)
		return err
	}
	return s
}

func (a *app) dispatcher() *lifecycle.Dispatcher {
	return lifecycle.NewDispatcher(a.guests, a.poller)
}

// resolveGuests resolves identifiers to references of the expected
// kind. An identifier naming a guest of the other kind is an error.
func (a *app) resolveGuests(cmd *cobra.Command, kind pve.Kind, ids []string) ([]pve.ResourceRef, error) {
	refs, err := a.resolver.ResolveMultiple(cmd.Context(), ids)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if ref.Kind != kind {
			return nil, fmt.Errorf("%s is a %s, not a %s", ref.DisplayName(), ref.Kind, kind)
		}
	}
	return refs, nil
}

// printResults prints a batch outcome and converts failures into a
// non-zero exit.
func (a *app) printResults(results []result.OperationResult) error {
	out, err := a.formatter.FormatResults(results)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(out)

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(results))
	}
	return nil
}

// printResult prints a single service outcome. A nil result is a no-op:
// nothing changed or the operator cancelled.
func (a *app) printResult(res *result.OperationResult) error {
	if res == nil {
		fmt.Println("No changes applied")
		return nil
	}
	return a.printResults([]result.OperationResult{*res})
}

// batchFlags registers the shared batch-control flags on a command and
// reads them back into options structs.
type batchFlags struct {
	sync     bool
	async    bool
	failFast bool
	timeout  time.Duration
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.sync, "sync", false, "wait for each task to finish")
	cmd.Flags().BoolVar(&f.async, "async", false, "submit tasks without waiting")
	cmd.Flags().BoolVar(&f.failFast, "fail-fast", false, "stop the batch at the first failure")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-task wait timeout (sync mode)")
}

func (f *batchFlags) batchOptions() orchestrate.BatchOptions {
	return orchestrate.BatchOptions{
		ForceSync:  f.sync,
		ForceAsync: f.async,
		FailFast:   f.failFast,
		Timeout:    f.timeout,
	}
}

func (f *batchFlags) lifecycleOptions() lifecycle.Options {
	return lifecycle.Options{
		ForceSync:  f.sync,
		ForceAsync: f.async,
		FailFast:   f.failFast,
		Timeout:    f.timeout,
	}
}

// parseAssignments parses k=v arguments for set commands.
func parseAssignments(args []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected field=value", arg)
		}
		values[key] = value
	}
	return values, nil
}

// editService builds the edit/set service for a guest kind.
func (a *app) editService(kind pve.Kind, dryRun bool) *edit.Service {
	var desc edit.Descriptor
	switch kind {
	case pve.KindCT:
		desc = edit.CTDescriptor(a.guests)
	case pve.KindNode:
		desc = edit.NodeDescriptor(a.nodes)
	default:
		desc = edit.VMDescriptor(a.guests)
	}
	svc := edit.NewService(desc, a.session())
	svc.DryRun = dryRun
	return svc
}
