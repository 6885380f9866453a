// Package controller provides output adapters for displaying mod import runs.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeApply StartMode = iota
	ModeClean
	ModeReport
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithApplyMode sets the UI to show a clean followed by an apply.
func WithApplyMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeApply
	}
}

// WithCleanMode sets the UI to show a clean-only run.
func WithCleanMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeClean
	}
}

// WithReportMode sets the UI to print stored or computed results.
func WithReportMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeReport
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeApply}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI defines the interface for displaying run progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish
	DisplayPhase(ctx context.Context, phase string)
	DisplayCleanup(ctx context.Context, results []m.CleanResult)
	DisplayMod(ctx context.Context, script m.Path)
	DisplayTargetStarted(ctx context.Context, chain m.Chain)
	DisplayTargetResult(ctx context.Context, result m.TargetResult)
	DisplaySummary(ctx context.Context, report m.RunReport)
	DisplayDiff(ctx context.Context, target m.Path, diff string)
	DisplayText(ctx context.Context, text string)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewUI returns the TUI for terminals and the SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}
