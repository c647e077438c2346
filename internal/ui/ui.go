package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	KindListView ViewState = iota
	ConfirmView
	SyncView
	ResultView
)

const (
	progressBuffer = 64
	recentMessages = 6
	maxErrors      = 10
)

// EngineFactory builds the engine for one sync; dry run is chosen in the UI.
type EngineFactory func(dryRun bool) tasks.SyncEngine

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	view      ViewState
	newEngine EngineFactory
	dryRun    bool
	width     int
	height    int
	kindList  list.Model
	selected  []models.Kind
	notice    string

	progressChan <-chan tasks.ProgressUpdate
	done         <-chan syncOutcome
	progress     map[models.Kind]tasks.ProgressUpdate
	recent       []string
	cancelling   bool

	result  *tasks.RunResult
	err     error
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model with every kind selected.
func NewModel(ctx context.Context, newEngine EngineFactory, dryRun bool) *Model {
	kinds := list.New(kindItems(true), list.NewDefaultDelegate(), 0, 0)
	kinds.Title = "Monarch → Firefly III"
	kinds.SetFilteringEnabled(false)
	kinds.SetShowHelp(false)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Model{
		ctx:       ctx,
		view:      KindListView,
		newEngine: newEngine,
		dryRun:    dryRun,
		kindList:  kinds,
		progress:  make(map[models.Kind]tasks.ProgressUpdate),
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the spinner; nothing is fetched until a sync is confirmed.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.kindList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case KindListView:
			return m.handleKindListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			return m.handleSyncKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.applyProgress(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgSyncComplete:
			outcome := msg.data.(syncOutcome)
			m.result = outcome.result
			m.err = outcome.err
			m.view = ResultView
			m.stopSync()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.view == KindListView {
		m.kindList, cmd = m.kindList.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case KindListView:
		return m.renderKindList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleKindListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if it, ok := m.kindList.SelectedItem().(kindItem); ok {
			it.selected = !it.selected
			return m, m.kindList.SetItem(m.kindList.Index(), it)
		}
		return m, nil
	case key.Matches(msg, m.keys.all):
		all := len(selectedKinds(m.kindList.Items())) != len(models.AllKinds)
		return m, m.kindList.SetItems(kindItems(all))
	case key.Matches(msg, m.keys.dryRun):
		m.dryRun = !m.dryRun
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.selected = selectedKinds(m.kindList.Items())
		if len(m.selected) == 0 {
			m.notice = "Select at least one kind"
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.kindList, cmd = m.kindList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = KindListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleSyncKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && m.cancel != nil {
		m.cancelling = true
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = KindListView
		m.result = nil
		m.err = nil
		return m, nil
	}
	return m, nil
}

func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	m.progress[update.Kind] = update
	if update.Message == "" {
		return
	}
	m.recent = append(m.recent, update.Message)
	if len(m.recent) > recentMessages {
		m.recent = m.recent[len(m.recent)-recentMessages:]
	}
}

func (m *Model) startSync() tea.Cmd {
	if m.newEngine == nil {
		return func() tea.Msg { return syncCompleteMsg(nil, fmt.Errorf("no sync engine configured")) }
	}

	ctx, cancel := context.WithCancel(m.ctx)
	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan syncOutcome, 1)

	m.cancel = cancel
	m.progressChan = progress
	m.done = done
	m.progress = make(map[models.Kind]tasks.ProgressUpdate)
	m.recent = nil
	m.cancelling = false

	engine := m.newEngine(m.dryRun)
	kinds := m.selected
	go func() {
		result, err := engine.Sync(ctx, kinds, progress)
		done <- syncOutcome{result, err}
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) stopSync() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.progressChan = nil
	m.done = nil
}

// waitForProgress reads the next update; the outcome is always sent before the channel closes.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return syncCompleteMsg(nil, fmt.Errorf("sync is not running"))
		}

		update, ok := <-progress
		if !ok {
			outcome := <-done
			return syncCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderKindList() string {
	mode := "live"
	if m.dryRun {
		mode = styles.warn.Render("dry run")
	}

	status := fmt.Sprintf("Mode: %s", mode)
	if m.notice != "" {
		status = fmt.Sprintf("%s\n%s", status, styles.err.Render(m.notice))
	}

	helpKeys := []key.Binding{m.keys.toggle, m.keys.all, m.keys.dryRun, m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s", m.kindList.View(), status, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	verb := "Mirror"
	if m.dryRun {
		verb = "Preview"
	}
	title := styles.title.Render(fmt.Sprintf("%s %d kinds to Firefly III?", verb, len(m.selected)))

	var b strings.Builder
	for _, kind := range m.selected {
		fmt.Fprintf(&b, "  • %s\n", kind)
	}
	if m.dryRun {
		b.WriteString(styles.warn.Render("\nDry run: nothing will be created"))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Monarch → Firefly III")

	var b strings.Builder
	for _, kind := range m.selected {
		update, ok := m.progress[kind]
		switch {
		case !ok:
			fmt.Fprintf(&b, "  %s %s\n", styles.help.Render("·"), kind)
		case update.Phase == tasks.Complete:
			fmt.Fprintf(&b, "  %s %s\n", statusMark(update), update.Message)
		default:
			fmt.Fprintf(&b, "  %s %s %s\n", m.spinner.View(), kind, phaseLabel(update))
		}
	}

	if len(m.recent) > 0 {
		b.WriteString("\n")
		for _, line := range m.recent {
			b.WriteString(styles.help.Render(line))
			b.WriteString("\n")
		}
	}

	footer := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	if m.cancelling {
		footer = styles.warn.Render("Cancelling...")
	}
	return fmt.Sprintf("%s\n%s\n%s", title, b.String(), footer)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	if m.result == nil {
		msg := "No result available"
		if m.err != nil {
			msg = fmt.Sprintf("Sync failed: %v", m.err)
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	var title string
	switch m.result.Status() {
	case models.StatusSuccess:
		title = styles.ok.Render("✓ Sync Complete")
	case models.StatusPartial:
		title = styles.warn.Render("! Sync Partially Complete")
	default:
		title = styles.err.Render("✗ Sync Failed")
	}
	if m.result.DryRun {
		title = fmt.Sprintf("%s %s", title, styles.help.Render("(dry run)"))
	}

	var b strings.Builder
	for i := range m.result.Kinds {
		kr := &m.result.Kinds[i]
		fmt.Fprintf(&b, "\n  %-12s %-8s %d created, %d existing, %d failed",
			kr.Kind, kr.Status(), kr.Created, kr.Existing, kr.Failed)
		if len(kr.Pending) > 0 {
			fmt.Fprintf(&b, ", %d pending", len(kr.Pending))
		}
	}
	fmt.Fprintf(&b, "\n\nDuration: %s", m.result.Duration().Round(time.Millisecond))

	if errs := recordErrors(m.result); len(errs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.warn.Render("Errors:"))
		for i, line := range errs {
			if i == maxErrors {
				fmt.Fprintf(&b, "\n  … and %d more", len(errs)-maxErrors)
				break
			}
			fmt.Fprintf(&b, "\n  • %s", line)
		}
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\n\n%s", styles.err.Render(fmt.Sprintf("Interrupted: %v", m.err)))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), helpView)
}

func recordErrors(result *tasks.RunResult) []string {
	var lines []string
	for i := range result.Kinds {
		kr := &result.Kinds[i]
		if kr.Fatal != nil {
			lines = append(lines, fmt.Sprintf("%s: %v", kr.Kind, kr.Fatal))
		}
		for _, e := range kr.Errors {
			lines = append(lines, e.Error())
		}
	}
	return lines
}

func statusMark(update tasks.ProgressUpdate) string {
	kr, ok := update.Data.(tasks.KindResult)
	if !ok {
		return styles.ok.Render("✓")
	}
	switch kr.Status() {
	case models.StatusSuccess:
		return styles.ok.Render("✓")
	case models.StatusPartial:
		return styles.warn.Render("!")
	default:
		return styles.err.Render("✗")
	}
}

func phaseLabel(update tasks.ProgressUpdate) string {
	switch update.Phase {
	case tasks.FetchSource:
		return "fetching from Monarch..."
	case tasks.Translate:
		return fmt.Sprintf("matching (%d/%d)", update.Step, update.Total)
	case tasks.Create:
		return fmt.Sprintf("creating (%d/%d)", update.Step, update.Total)
	default:
		return "processing..."
	}
}
