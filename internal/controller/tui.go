package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Border(lipgloss.DoubleBorder()).Padding(0, 2)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the Bubble Tea program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cfg := newStartConfig(options)
	t.program = tea.NewProgram(newRunModel(cfg.mode), tea.WithOutput(t.output), tea.WithContext(ctx))
	t.done = make(chan struct{})

	program, done := t.program, t.done

	go func() {
		defer close(done)

		_, _ = program.Run()
	}()

	return nil
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// Close stops the program and waits for the final frame.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	program, done := t.program, t.done
	t.program = nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the program exits on its own or the user quits.
func (t *TUI) Wait(ctx context.Context) {
	t.mu.Lock()
	done := t.done
	t.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

type (
	phaseMsg         string
	cleanupMsg       []m.CleanResult
	modMsg           m.Path
	targetStartedMsg m.Chain
	targetResultMsg  m.TargetResult
	summaryMsg       m.RunReport
	textMsg          string
)

// DisplayPhase implements UI.
func (t *TUI) DisplayPhase(_ context.Context, phase string) { t.send(phaseMsg(phase)) }

// DisplayCleanup implements UI.
func (t *TUI) DisplayCleanup(_ context.Context, results []m.CleanResult) {
	t.send(cleanupMsg(results))
}

// DisplayMod implements UI.
func (t *TUI) DisplayMod(_ context.Context, script m.Path) { t.send(modMsg(script)) }

// DisplayTargetStarted implements UI.
func (t *TUI) DisplayTargetStarted(_ context.Context, chain m.Chain) {
	t.send(targetStartedMsg(chain))
}

// DisplayTargetResult implements UI.
func (t *TUI) DisplayTargetResult(_ context.Context, result m.TargetResult) {
	t.send(targetResultMsg(result))
}

// DisplaySummary implements UI.
func (t *TUI) DisplaySummary(_ context.Context, report m.RunReport) {
	t.send(summaryMsg(report))
}

// DisplayDiff implements UI.
func (t *TUI) DisplayDiff(_ context.Context, target m.Path, diff string) {
	if diff == "" {
		diff = fmt.Sprintf("%s: unchanged", target)
	}

	t.send(textMsg(diff + "\n"))
}

// DisplayText implements UI.
func (t *TUI) DisplayText(_ context.Context, text string) { t.send(textMsg(text)) }

type targetRow struct {
	target     m.Path
	directives int
	state      string
	err        error
}

const (
	statePending = "applying"
	statePatched = "patched"
	stateFailed  = "rolled back"
)

// runModel is the Bubble Tea model for one run.
type runModel struct {
	mode     StartMode
	spinner  spinner.Model
	phase    string
	mods     int
	cleaned  []m.CleanResult
	targets  []targetRow
	index    map[m.Path]int
	text     strings.Builder
	summary  *m.RunReport
	height   int
	width    int
	offset   int
	quitting bool
}

func newRunModel(mode StartMode) *runModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &runModel{
		mode:    mode,
		spinner: sp,
		index:   make(map[m.Path]int),
	}
}

func (rm *runModel) Init() tea.Cmd {
	return rm.spinner.Tick
}

//nolint:cyclop // one case per message type
func (rm *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.height = msg.Height
		rm.width = msg.Width

		return rm, nil

	case tea.KeyMsg:
		return rm.handleKeyPress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd

	case phaseMsg:
		rm.phase = string(msg)

	case cleanupMsg:
		rm.cleaned = append(rm.cleaned, msg...)

	case modMsg:
		rm.mods++

	case targetStartedMsg:
		rm.index[msg.Target] = len(rm.targets)
		rm.targets = append(rm.targets, targetRow{
			target:     msg.Target,
			directives: len(msg.Directives),
			state:      statePending,
		})

	case targetResultMsg:
		rm.finishTarget(m.TargetResult(msg))

	case textMsg:
		rm.text.WriteString(string(msg))

	case summaryMsg:
		report := m.RunReport(msg)
		rm.summary = &report
		rm.phase = ""
		rm.quitting = true

		return rm, tea.Quit
	}

	return rm, nil
}

func (rm *runModel) finishTarget(result m.TargetResult) {
	i, ok := rm.index[result.Target]
	if !ok {
		i = len(rm.targets)
		rm.index[result.Target] = i
		rm.targets = append(rm.targets, targetRow{target: result.Target, directives: result.Directives})
	}

	rm.targets[i].state = statePatched
	if result.Status == m.RolledBack {
		rm.targets[i].state = stateFailed
		rm.targets[i].err = result.Err
	}
}

//nolint:exhaustive // We only handle specific navigation keys
func (rm *runModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		rm.quitting = true
		return rm, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		rm.quitting = true
		return rm, tea.Quit

	case "down", "j":
		rm.offset = min(rm.offset+1, rm.maxOffset())

	case "up", "k":
		rm.offset = max(rm.offset-1, 0)

	case "g", "home":
		rm.offset = 0

	case "G", "end":
		rm.offset = rm.maxOffset()
	}

	return rm, nil
}

// itemsPerPage calculates how many target rows fit on screen.
func (rm *runModel) itemsPerPage() int {
	if rm.height == 0 {
		return len(rm.targets)
	}
	// Header box, phase, cleanup line, summary and footer.
	reserved := 12

	return max(rm.height-reserved, 1)
}

func (rm *runModel) maxOffset() int {
	return max(len(rm.targets)-rm.itemsPerPage(), 0)
}

func (rm *runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Mod Importer"))
	b.WriteString("\n\n")

	if rm.phase != "" && !rm.quitting {
		fmt.Fprintf(&b, "  %s %s\n\n", rm.spinner.View(), rm.phase)
	}

	if len(rm.cleaned) > 0 {
		fmt.Fprintf(&b, "  %s\n", faintStyle.Render(fmt.Sprintf("cleaned %d tracked file(s)", len(rm.cleaned))))
	}

	if rm.mods > 0 {
		fmt.Fprintf(&b, "  %s\n", faintStyle.Render(fmt.Sprintf("read %d mod script(s)", rm.mods)))
	}

	rm.renderTargets(&b)

	if rm.text.Len() > 0 {
		b.WriteString(rm.text.String())
	}

	if rm.summary != nil {
		rm.renderSummary(&b)
	}

	return b.String()
}

func (rm *runModel) renderTargets(b *strings.Builder) {
	if len(rm.targets) == 0 {
		return
	}

	b.WriteString("\n")

	start := min(rm.offset, len(rm.targets))
	end := min(start+rm.itemsPerPage(), len(rm.targets))

	for _, row := range rm.targets[start:end] {
		var state string

		switch row.state {
		case statePatched:
			state = okStyle.Render("✓ " + row.state)
		case stateFailed:
			state = failStyle.Render("✗ " + row.state)
		default:
			state = pendingStyle.Render(rm.spinner.View() + row.state)
		}

		fmt.Fprintf(b, "  %s  %s %s\n", state, row.target, faintStyle.Render(fmt.Sprintf("(%d)", row.directives)))

		if row.err != nil {
			fmt.Fprintf(b, "      %s\n", failStyle.Render(row.err.Error()))
		}
	}

	if end-start < len(rm.targets) {
		fmt.Fprintf(b, "\n  Showing %d-%d of %d | ↑/k: up | ↓/j: down | q: quit\n", start+1, end, len(rm.targets))
	}
}

func (rm *runModel) renderSummary(b *strings.Builder) {
	b.WriteString("\n")

	if rm.mode == ModeClean {
		fmt.Fprintf(b, "  Finished cleaning %s, skipping edits.\n", plural(len(rm.summary.Cleaned), "file"))
		return
	}

	fmt.Fprintf(b, "  %s\n", summaryLine(*rm.summary))

	if failed := len(rm.summary.Failed()); failed > 0 {
		fmt.Fprintf(b, "  %s\n", failStyle.Render(fmt.Sprintf("%s rolled back", plural(failed, "target"))))
	}
}
