// Package tui is the control panel: it dispatches commands to the build and
// debug managers and renders the status messages they push back.
package tui

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"enginectl/internal/build"
	"enginectl/internal/config"
	"enginectl/internal/debug"
	"enginectl/internal/detect"
	"enginectl/internal/events"
	"enginectl/internal/history"
	"enginectl/internal/models"
)

type View int

const (
	ViewPanel View = iota
	ViewInput
	ViewHistory
)

const maxLogLines = 10

type inputTarget int

const (
	inputEngine inputTarget = iota
	inputProject
	inputFlavor
)

type action struct {
	label string
	cmd   func(a *App) tea.Cmd
}

type App struct {
	cfg   *config.Manager
	build *build.Manager
	debug *debug.Manager
	hist  *history.Storage

	events chan events.Event

	view        View
	actions     []action
	selectedIdx int

	bar      progress.Model
	percent  int
	phase    string
	busy     bool
	logLines []string

	input       textinput.Model
	inputTarget inputTarget

	runs []*models.OperationRun

	width  int
	height int
	err    error
}

func NewApp(cfg *config.Manager, buildMgr *build.Manager, debugMgr *debug.Manager, hist *history.Storage, eventCh chan events.Event) *App {
	ti := textinput.New()
	ti.CharLimit = 512

	return &App{
		cfg:     cfg,
		build:   buildMgr,
		debug:   debugMgr,
		hist:    hist,
		events:  eventCh,
		view:    ViewPanel,
		bar:     progress.New(progress.WithDefaultGradient()),
		input:   ti,
		actions: panelActions(),
	}
}

func panelActions() []action {
	return []action{
		{"Build", func(a *App) tea.Cmd { return a.runOp(a.build.Build) }},
		{"Clean Solution", func(a *App) tea.Cmd { return a.runOp(a.build.Clean) }},
		{"Generate Project Files", func(a *App) tea.Cmd { return a.runOp(a.build.Generate) }},
		{"Regenerate Solution", func(a *App) tea.Cmd { return a.runOp(a.build.Regenerate) }},
		{"Start Debug", func(a *App) tea.Cmd { return a.runOp(a.debug.StartWithDebugger) }},
		{"Start Without Debugger", func(a *App) tea.Cmd { return a.runOp(a.debug.StartWithoutDebugger) }},
		{"Launch Project", func(a *App) tea.Cmd { return a.runOp(a.debug.LaunchOnly) }},
		{"Cancel Build", func(a *App) tea.Cmd { a.build.Cancel(); return nil }},
		{"Cancel Debug", func(a *App) tea.Cmd { a.debug.Cancel(); return nil }},
		{"Set Engine Path", func(a *App) tea.Cmd { return a.openInput(inputEngine) }},
		{"Set Project Path", func(a *App) tea.Cmd { return a.openInput(inputProject) }},
		{"Set Build Flavor", func(a *App) tea.Cmd { return a.openInput(inputFlavor) }},
		{"Detect Project", func(a *App) tea.Cmd { return a.detectProject }},
		{"History", func(a *App) tea.Cmd { return a.loadHistory }},
	}
}

func (a *App) Init() tea.Cmd {
	return a.waitForEvent()
}

// Messages

type engineEventMsg struct {
	ev events.Event
}

type opDoneMsg struct {
	err error
}

type historyLoadedMsg struct {
	runs []*models.OperationRun
	err  error
}

type detectDoneMsg struct {
	paths []string
	err   error
}

// Commands

// waitForEvent pumps manager events into the bubbletea loop one at a time.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg{ev: <-a.events}
	}
}

// runOp dispatches a manager operation on its own goroutine; progress and
// outcome arrive through the event channel.
func (a *App) runOp(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: fn()}
	}
}

func (a *App) loadHistory() tea.Msg {
	runs, err := a.hist.ListRuns(20)
	return historyLoadedMsg{runs: runs, err: err}
}

func (a *App) detectProject() tea.Msg {
	cwd, err := os.Getwd()
	if err != nil {
		return detectDoneMsg{err: err}
	}
	paths, err := detect.Scan(cwd)
	return detectDoneMsg{paths: paths, err: err}
}

func (a *App) openInput(target inputTarget) tea.Cmd {
	cfg := a.cfg.Get()
	a.inputTarget = target
	switch target {
	case inputEngine:
		a.input.Placeholder = "path to the engine editor executable"
		a.input.SetValue(cfg.EnginePath)
	case inputProject:
		a.input.Placeholder = "path to the project file"
		a.input.SetValue(cfg.ProjectPath)
	case inputFlavor:
		a.input.Placeholder = "build flavor, e.g. Development"
		a.input.SetValue(cfg.BuildFlavor)
	}
	a.view = ViewInput
	return a.input.Focus()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		w := msg.Width - 10
		if w > 60 {
			w = 60
		}
		if w > 0 {
			a.bar.Width = w
		}
		return a, nil

	case engineEventMsg:
		a.applyEvent(msg.ev)
		return a, a.waitForEvent()

	case opDoneMsg:
		// Outcome detail arrives as an event; only busy rejections and other
		// dispatch-time errors need surfacing here.
		a.err = msg.err
		return a, nil

	case historyLoadedMsg:
		a.err = msg.err
		if msg.err == nil {
			a.runs = msg.runs
			a.view = ViewHistory
		}
		return a, nil

	case detectDoneMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		if len(msg.paths) == 0 {
			a.appendLog("no project file found under the current directory")
			return a, nil
		}
		if err := a.cfg.Update(config.BuildConfig{ProjectPath: msg.paths[0]}); err != nil {
			a.err = err
			return a, nil
		}
		a.appendLog("detected project " + msg.paths[0])
		return a, nil
	}

	if a.view == ViewInput {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) applyEvent(ev events.Event) {
	switch ev := ev.(type) {
	case events.ConfigUpdated:
		a.appendLog("configuration updated")
	case events.BuildStarted:
		a.busy = true
		a.percent = 0
		a.phase = ""
		a.err = nil
		a.appendLog(fmt.Sprintf("%s started", ev.Operation))
	case events.BuildProgress:
		a.percent = ev.Percent
		a.phase = ev.Message
	case events.BuildSucceeded:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s succeeded", ev.Operation))
	case events.BuildFailed:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s failed: %s", ev.Operation, ev.Err))
	case events.BuildCancelled:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s cancelled", ev.Operation))
	case events.DebugStarted:
		a.busy = true
		a.percent = 0
		a.phase = ""
		a.err = nil
		a.appendLog(fmt.Sprintf("%s starting", ev.Operation))
	case events.DebugSucceeded:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s started", ev.Operation))
	case events.DebugFailed:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s: %s", ev.Operation, ev.Err))
	case events.DebugCancelled:
		a.busy = false
		a.appendLog(fmt.Sprintf("%s cancelled", ev.Operation))
	case events.ProjectDetected:
		a.appendLog("project file appeared: " + ev.Path)
		if a.cfg.Get().ProjectPath == "" {
			if err := a.cfg.Update(config.BuildConfig{ProjectPath: ev.Path}); err != nil {
				a.err = err
			}
		}
	}
}

func (a *App) appendLog(line string) {
	stamp := time.Now().Format("15:04:05")
	a.logLines = append(a.logLines, stamp+"  "+line)
	if len(a.logLines) > maxLogLines {
		a.logLines = a.logLines[len(a.logLines)-maxLogLines:]
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.view {
	case ViewPanel:
		return a.handlePanelKey(msg)
	case ViewInput:
		return a.handleInputKey(msg)
	case ViewHistory:
		return a.handleHistoryKey(msg)
	}
	return a, nil
}

func (a *App) handlePanelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "up", "k":
		if a.selectedIdx > 0 {
			a.selectedIdx--
		}

	case "down", "j":
		if a.selectedIdx < len(a.actions)-1 {
			a.selectedIdx++
		}

	case "enter":
		return a, a.actions[a.selectedIdx].cmd(a)

	case "r":
		a.err = nil
		a.appendLog("refreshed")

	case "h":
		return a, a.loadHistory
	}

	return a, nil
}

func (a *App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.view = ViewPanel
		a.input.Blur()
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "enter":
		value := a.input.Value()
		a.view = ViewPanel
		a.input.Blur()
		if value == "" {
			return a, nil
		}
		var partial config.BuildConfig
		switch a.inputTarget {
		case inputEngine:
			partial.EnginePath = value
		case inputProject:
			partial.ProjectPath = value
		case inputFlavor:
			partial.BuildFlavor = value
		}
		if err := a.cfg.Update(partial); err != nil {
			a.err = err
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		a.view = ViewPanel
	case "ctrl+c":
		return a, tea.Quit
	}
	return a, nil
}

// Styles

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusBusy = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	statusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

func (a *App) View() string {
	switch a.view {
	case ViewPanel:
		return a.viewPanel()
	case ViewInput:
		return a.viewInput()
	case ViewHistory:
		return a.viewHistory()
	}
	return ""
}

func (a *App) viewPanel() string {
	s := titleStyle.Render("enginectl") + "\n\n"

	cfg := a.cfg.Get()
	s += labelStyle.Render("Engine:  ") + orUnset(cfg.EnginePath) + "\n"
	s += labelStyle.Render("Project: ") + orUnset(cfg.ProjectPath) + "\n"
	s += labelStyle.Render("Flavor:  ") + orUnset(cfg.BuildFlavor) + "\n"
	if err := a.cfg.Validate(); err != nil {
		s += labelStyle.Render("Config:  ") + statusWarn.Render(err.Error()) + "\n"
	} else {
		s += labelStyle.Render("Config:  ") + statusOK.Render("valid") + "\n"
	}
	s += "\n"

	for i, act := range a.actions {
		line := act.label
		if i == a.selectedIdx {
			line = selectedStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		s += line + "\n"
	}
	s += "\n"

	if a.busy {
		s += statusBusy.Render("● running") + "  " + dimStyle.Render(a.phase) + "\n"
		s += a.bar.ViewAs(float64(a.percent)/100.0) + "\n\n"
	}

	if len(a.logLines) > 0 {
		s += "Log\n───\n"
		for _, line := range a.logLines {
			s += dimStyle.Render(line) + "\n"
		}
		s += "\n"
	}

	if a.err != nil {
		s += statusBad.Render("Error: "+a.err.Error()) + "\n\n"
	}

	s += helpStyle.Render("[↑/↓] select  [enter] run  [h] history  [r] refresh  [q] quit")
	return s
}

func (a *App) viewInput() string {
	s := titleStyle.Render("enginectl") + "\n\n"
	switch a.inputTarget {
	case inputEngine:
		s += "Engine editor executable path:\n\n"
	case inputProject:
		s += "Project file path:\n\n"
	case inputFlavor:
		s += "Build flavor:\n\n"
	}
	s += a.input.View() + "\n\n"
	s += helpStyle.Render("[enter] save  [esc] cancel")
	return s
}

func (a *App) viewHistory() string {
	s := titleStyle.Render("History") + "\n\n"

	if len(a.runs) == 0 {
		s += "No operations recorded yet.\n"
	} else {
		for _, run := range a.runs {
			s += a.formatRunLine(run) + "\n"
		}
	}

	s += "\n" + helpStyle.Render("[esc] back  [q] quit")
	return s
}

func (a *App) formatRunLine(run *models.OperationRun) string {
	status := a.formatStatus(run.Status)
	age := a.formatAge(run.StartedAt)
	detail := ""
	if run.Error != "" {
		detail = dimStyle.Render(truncate(run.Error, 40))
	}
	return fmt.Sprintf("#%-3d %-10s %-10s %s  %-6s  %s",
		run.ID, run.Operation, run.ProjectName, status, age, detail)
}

func (a *App) formatStatus(status models.RunStatus) string {
	switch status {
	case models.RunStatusRunning:
		return statusBusy.Render("● running")
	case models.RunStatusSucceeded:
		return statusOK.Render("✓ ok")
	case models.RunStatusFailed:
		return statusBad.Render("✗ failed")
	case models.RunStatusCancelled:
		return statusWarn.Render("⚠ cancelled")
	default:
		return string(status)
	}
}

func (a *App) formatAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func orUnset(v string) string {
	if v == "" {
		return dimStyle.Render("(unset)")
	}
	return v
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
