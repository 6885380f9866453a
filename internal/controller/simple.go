package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream. It is safe
// for concurrent use; each Display call is written as one block.
type SimpleUI struct {
	mu   sync.Mutex
	cmd  *cobra.Command
	mode StartMode
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.mode = newStartConfig(options).mode
	s.mu.Unlock()

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayPhase announces a stage of the run.
func (s *SimpleUI) DisplayPhase(ctx context.Context, phase string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", phase)
}

// DisplayCleanup lists what cleanup did.
func (s *SimpleUI) DisplayCleanup(ctx context.Context, results []m.CleanResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "  %s %s\n", r.Action, r.Target)
	}

	s.printf("%s", b.String())
}

// DisplayMod shows a mod script being read.
func (s *SimpleUI) DisplayMod(ctx context.Context, script m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("  %s\n", script)
}

// DisplayTargetStarted shows the target and its sorted sources.
func (s *SimpleUI) DisplayTargetStarted(ctx context.Context, chain m.Chain) {
	if err := ctx.Err(); err != nil {
		return
	}

	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", chain.Target)

	for i, d := range chain.Directives {
		fmt.Fprintf(&b, " #%-4d %s\n", i+1, joinPaths(d.Sources))
	}

	s.printf("%s", b.String())
}

// DisplayTargetResult reports a failed target.
func (s *SimpleUI) DisplayTargetResult(ctx context.Context, result m.TargetResult) {
	if err := ctx.Err(); err != nil {
		return
	}

	if result.Status == m.RolledBack {
		s.printf("  rolled back: %v\n", result.Err)
	}
}

// DisplaySummary prints the per-target table and totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, report m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	if s.startMode() == ModeClean {
		s.printf("Finished cleaning %s, skipping edits.\n", plural(len(report.Cleaned), "file"))
		return
	}

	var b strings.Builder

	if len(report.Targets) > 0 {
		fmt.Fprintf(&b, "\n%s", renderTargetTable(report))
	}

	fmt.Fprintf(&b, "\n%s\n", summaryLine(report))

	for _, failed := range report.Failed() {
		fmt.Fprintf(&b, "error: %v\n", failed.Err)
	}

	s.printf("%s", b.String())
}

// DisplayDiff prints the change set of one target.
func (s *SimpleUI) DisplayDiff(ctx context.Context, target m.Path, diff string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if diff == "" {
		s.printf("%s: unchanged\n", target)
		return
	}

	s.printf("%s\n", diff)
}

// DisplayText prints raw output such as a record dump.
func (s *SimpleUI) DisplayText(ctx context.Context, text string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s", text)
}

func renderTargetTable(report m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Target", "Mode", "Directives", "Status"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	for _, t := range report.Targets {
		table.Append([]string{t.Target.String(), t.Mode.String(), fmt.Sprintf("%d", t.Directives), t.Status.String()})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(report.Targets)),
		"",
		fmt.Sprintf("%d", report.DirectiveCount()),
		fmt.Sprintf("%d failed", len(report.Failed())),
	})

	table.Render()

	return tableBuffer.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}

func summaryLine(report m.RunReport) string {
	verb := "imports"
	if len(report.Targets) != 1 {
		verb = "import"
	}

	return fmt.Sprintf("%s %s a total of %s.",
		plural(len(report.Targets), "base file"), verb, plural(report.DirectiveCount(), "mod file"))
}

func joinPaths(paths []m.Path) string {
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p.String())
	}

	return strings.Join(parts, " + ")
}

func (s *SimpleUI) startMode() StartMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
