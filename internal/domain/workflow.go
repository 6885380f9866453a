package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"modimporter.dev/pkg/modimporter/internal/adapter"
	"modimporter.dev/pkg/modimporter/internal/binrec"
	"modimporter.dev/pkg/modimporter/internal/controller"
	"modimporter.dev/pkg/modimporter/internal/directive"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

// RunArgs locates the content root and its managed subtrees.
type RunArgs struct {
	Root            string
	ModsDir         m.Path
	ModFile         string
	DefaultTo       []m.Path
	DefaultPriority int
	ImportPrefix    string
	BackupDir       m.Path
	ReportFile      m.Path
	MetricsFile     string
	Parallel        int
}

// DiffArgs selects the targets to compare with their backups. No targets
// means every backed-up target.
type DiffArgs struct {
	RunArgs
	Targets []m.Path
}

// DumpArgs names a binary record file to print.
type DumpArgs struct {
	Root   string
	File   m.Path
	Format string
}

// WatchArgs configures the re-apply loop.
type WatchArgs struct {
	RunArgs
	Debounce time.Duration
}

// Dump formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Workflow is the entry point used by the commands.
type Workflow interface {
	// Apply reverts the previous run and applies every mod again.
	Apply(ctx context.Context, args RunArgs) error
	// Clean reverts every tracked edit without re-applying.
	Clean(ctx context.Context, args RunArgs) error
	// Diff shows what the tool changed in backed-up targets.
	Diff(ctx context.Context, args DiffArgs) error
	// Dump prints the records of a binary record file.
	Dump(ctx context.Context, args DumpArgs) error
	// Watch applies once and again whenever the mods directory changes.
	Watch(ctx context.Context, args WatchArgs) error
	// Status prints the report of the last run.
	Status(ctx context.Context, args RunArgs) error
}

// ContentFSFactory opens the content root of a run.
type ContentFSFactory func(root string) adapter.ContentFSAdapter

type workflow struct {
	newFS   ContentFSFactory
	watcher adapter.WatchAdapter
	metrics adapter.MetricsAdapter
	now     func() time.Time
	controller.UI
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(
	newFS ContentFSFactory,
	watcher adapter.WatchAdapter,
	metrics adapter.MetricsAdapter,
	ui controller.UI,
) Workflow {
	return &workflow{
		newFS:   newFS,
		watcher: watcher,
		metrics: metrics,
		now:     time.Now,
		UI:      ui,
	}
}

// run is the state owned by a single invocation.
type run struct {
	args     RunArgs
	fs       adapter.ContentFSAdapter
	backups  BackupStore
	registry *Registry
	orch     Orchestrator
	reports  adapter.ReportStore
}

func (w *workflow) newRun(args RunArgs) *run {
	fs := w.newFS(args.Root)
	backups := NewBackupStore(fs, args.BackupDir)

	return &run{
		args:     args,
		fs:       fs,
		backups:  backups,
		registry: NewRegistry(),
		orch:     newOrchestrator(fs, backups, args.ImportPrefix, w.now),
		reports:  adapter.NewYAMLReportStore(fs),
	}
}

func (w *workflow) Apply(ctx context.Context, args RunArgs) error {
	return w.execute(ctx, args, false)
}

func (w *workflow) Clean(ctx context.Context, args RunArgs) error {
	return w.execute(ctx, args, true)
}

func (w *workflow) execute(ctx context.Context, args RunArgs, cleanOnly bool) error {
	mode := controller.WithApplyMode()
	if cleanOnly {
		mode = controller.WithCleanMode()
	}

	if err := w.Start(ctx, mode); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	r := w.newRun(args)
	report := m.RunReport{Started: w.now()}

	cleaned, err := w.cleanup(ctx, r)
	report.Cleaned = cleaned

	if err != nil {
		return err
	}

	if !cleanOnly {
		if report.Mods, err = w.collect(ctx, r); err != nil {
			return err
		}

		if report.Targets, err = w.patch(ctx, r); err != nil {
			return err
		}
	}

	w.finish(ctx, r, report)

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d target(s) rolled back", len(failed))
	}

	return nil
}

func (w *workflow) cleanup(ctx context.Context, r *run) ([]m.CleanResult, error) {
	w.DisplayPhase(ctx, "Cleaning edits... (if there are issues validate/reinstall files)")

	cleaned, err := r.backups.Cleanup()
	w.DisplayCleanup(ctx, cleaned)

	if err != nil {
		slog.Error("Failed to clean previous edits", "error", err)
		return cleaned, fmt.Errorf("failed to clean previous edits: %w", err)
	}

	return cleaned, nil
}

// collect parses the script of every mod, in directory order, into the
// run's registry and returns the number of mods with a script.
func (w *workflow) collect(ctx context.Context, r *run) (int, error) {
	w.DisplayPhase(ctx, "Reading mod files...")

	if err := r.fs.MkdirAll(r.args.ModsDir); err != nil {
		slog.Error("Failed to create mods directory", "dir", r.args.ModsDir, "error", err)
		return 0, fmt.Errorf("failed to create mods directory: %w", err)
	}

	mods, err := r.fs.ReadDir(r.args.ModsDir)
	if err != nil {
		slog.Error("Failed to list mods", "dir", r.args.ModsDir, "error", err)
		return 0, fmt.Errorf("failed to list mods: %w", err)
	}

	parser := directive.NewParser(r.fs, directive.Options{
		DefaultTo:       r.args.DefaultTo,
		DefaultPriority: r.args.DefaultPriority,
		BackupDir:       r.args.BackupDir,
	})

	count := 0

	for _, mod := range mods {
		if !r.fs.IsDir(mod) {
			continue
		}

		script := mod.Join(r.args.ModFile)
		if !r.fs.Exists(script) {
			slog.Info("Mod has no script, skipping", "mod", mod)
			continue
		}

		w.DisplayMod(ctx, script)

		directives, err := parser.ParseFile(script)
		if err != nil {
			slog.Error("Failed to parse mod script", "script", script, "error", err)
			return count, fmt.Errorf("failed to parse %s: %w", script, err)
		}

		r.registry.Add(directives...)
		count++
	}

	slog.Info("Collected directives", "mods", count, "targets", r.registry.Len(), "directives", r.registry.Directives())

	return count, nil
}

// patch applies every chain. Chains run in parallel up to the configured
// limit; each chain stays sequential.
func (w *workflow) patch(ctx context.Context, r *run) ([]m.TargetResult, error) {
	w.DisplayPhase(ctx, "Modifying files...")

	chains := r.registry.Chains()
	results := make([]m.TargetResult, len(chains))

	group, gctx := errgroup.WithContext(ctx)
	if r.args.Parallel > 0 {
		group.SetLimit(r.args.Parallel)
	}

	for i, chain := range chains {
		group.Go(func() error {
			w.DisplayTargetStarted(gctx, chain)

			result, err := r.orch.ApplyChain(gctx, chain)
			results[i] = result

			if err != nil {
				slog.Error("Aborting run", "target", chain.Target, "error", err)
				return err
			}

			w.DisplayTargetResult(gctx, result)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, fmt.Errorf("run aborted: %w", err)
	}

	return results, nil
}

func (w *workflow) finish(ctx context.Context, r *run, report m.RunReport) {
	if r.args.ReportFile != "" {
		if err := r.reports.SaveReport(r.args.ReportFile, report); err != nil {
			slog.Warn("Failed to save run report", "file", r.args.ReportFile, "error", err)
		}
	}

	w.metrics.Observe(report)

	if err := w.metrics.Flush(r.args.MetricsFile); err != nil {
		slog.Warn("Failed to export metrics", "error", err)
	}

	w.DisplaySummary(ctx, report)
}

func (w *workflow) Status(ctx context.Context, args RunArgs) error {
	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	r := w.newRun(args)

	report, err := r.reports.LoadReport(args.ReportFile)
	if adapter.IsNotExist(err) {
		w.DisplayText(ctx, "No run recorded yet.\n")
		return nil
	}

	if err != nil {
		slog.Error("Failed to load run report", "file", args.ReportFile, "error", err)
		return fmt.Errorf("failed to load run report: %w", err)
	}

	w.DisplayText(ctx, fmt.Sprintf("Last run %s, %d mod(s).\n", report.Started.Format(time.RFC3339), report.Mods))
	w.DisplaySummary(ctx, report)

	return nil
}

func (w *workflow) Diff(ctx context.Context, args DiffArgs) error {
	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	r := w.newRun(args.RunArgs)

	entries, err := r.backups.Entries()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if len(args.Targets) > 0 && !slices.Contains(args.Targets, entry.Target) {
			continue
		}

		same, err := identical(r.fs, entry)
		if err != nil {
			slog.Error("Failed to hash target", "target", entry.Target, "error", err)
			return fmt.Errorf("failed to diff %s: %w", entry.Target, err)
		}

		if same {
			w.DisplayDiff(ctx, entry.Target, "")
			continue
		}

		diff, err := w.diffEntry(r, entry)
		if err != nil {
			slog.Error("Failed to diff target", "target", entry.Target, "error", err)
			return fmt.Errorf("failed to diff %s: %w", entry.Target, err)
		}

		w.DisplayDiff(ctx, entry.Target, diff)
	}

	return nil
}

// identical reports whether a target still matches its backup byte for byte.
func identical(fs adapter.ContentFSAdapter, entry BackupEntry) (bool, error) {
	if entry.Tombstone || !fs.Exists(entry.Target) {
		return false, nil
	}

	before, err := fs.HashFile(entry.Backup)
	if err != nil {
		return false, err
	}

	after, err := fs.HashFile(entry.Target)
	if err != nil {
		return false, err
	}

	return before == after, nil
}

func (w *workflow) diffEntry(r *run, entry BackupEntry) (string, error) {
	var before []byte

	if !entry.Tombstone {
		data, err := r.fs.ReadFile(entry.Backup)
		if err != nil {
			return "", err
		}

		before = data
	}

	after, err := r.fs.ReadFile(entry.Target)
	if err != nil && !adapter.IsNotExist(err) {
		return "", err
	}

	schema := binrec.ObstacleSchema
	if bytes.HasPrefix(after, schema.Magic[:]) && (before == nil || bytes.HasPrefix(before, schema.Magic[:])) {
		return binaryDiff(schema, entry.Target, before, after)
	}

	from := r.args.BackupDir.Join(entry.Target.String()).String()
	if entry.Tombstone {
		from = "/dev/null"
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: from,
		ToFile:   entry.Target.String(),
		Context:  3,
	})
}

func binaryDiff(schema binrec.Schema, target m.Path, before, after []byte) (string, error) {
	codec := binrec.NewCodec(schema)

	var old []binrec.Record

	if before != nil {
		records, err := codec.Decode(before)
		if err != nil {
			return "", err
		}

		old = records
	}

	current, err := codec.Decode(after)
	if err != nil {
		return "", err
	}

	ops, err := schema.Diff(old, current)
	if err != nil {
		return "", err
	}

	if len(ops) == 0 {
		return "", nil
	}

	return fmt.Sprintf("--- %s (records)\n%s\n", target, ops.String()), nil
}

func (w *workflow) Dump(ctx context.Context, args DumpArgs) error {
	if err := w.Start(ctx, controller.WithReportMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	fs := w.newFS(args.Root)

	data, err := fs.ReadFile(args.File)
	if err != nil {
		slog.Error("Failed to read record file", "file", args.File, "error", err)
		return fmt.Errorf("failed to read %s: %w", args.File, err)
	}

	codec := binrec.NewCodec(binrec.ObstacleSchema)

	records, err := codec.Decode(data)
	if err != nil {
		slog.Error("Failed to decode record file", "file", args.File, "error", err)
		return fmt.Errorf("failed to decode %s: %w", args.File, err)
	}

	var out []byte

	switch strings.ToLower(args.Format) {
	case "", FormatJSON:
		out, err = codec.Schema.FormatJSON(records)
	case FormatYAML:
		out, err = codec.Schema.FormatYAML(records)
	default:
		return fmt.Errorf("unknown dump format %q", args.Format)
	}

	if err != nil {
		return fmt.Errorf("failed to format records: %w", err)
	}

	w.DisplayText(ctx, string(out))

	return nil
}

func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	root := w.newFS(args.Root).Root()
	if root == "" {
		return errors.New("watch needs a content root on disk")
	}

	if err := w.Apply(ctx, args.RunArgs); err != nil {
		slog.Warn("Initial apply failed", "error", err)
	}

	dir := filepath.Join(root, filepath.FromSlash(args.ModsDir.String()))

	return w.watcher.Watch(ctx, []string{dir}, args.Debounce, func(changed []string) {
		slog.Info("Mods changed, re-applying", "paths", changed)

		if err := w.Apply(ctx, args.RunArgs); err != nil {
			slog.Warn("Re-apply failed", "error", err)
		}
	})
}
