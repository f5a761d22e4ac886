package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryo8073/report-gen-sub006/internal/comparison"
	"github.com/ryo8073/report-gen-sub006/internal/contentstate"
	"github.com/ryo8073/report-gen-sub006/internal/generator"
	"github.com/ryo8073/report-gen-sub006/internal/viewcoord"
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("245"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(lipgloss.Color("39")).Underline(true)
	dirtyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	noticeStyles = map[viewcoord.NoticeKind]lipgloss.Style{
		viewcoord.NoticeFallback: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		viewcoord.NoticeRecovery: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		viewcoord.NoticeError:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		viewcoord.NoticeInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

var tabOrder = []contentstate.Tab{
	contentstate.TabRaw,
	contentstate.TabPreview,
	contentstate.TabEditor,
	contentstate.TabComparison,
}

type generatedMsg struct {
	report *generator.Report
	err    error
}

type noticeExpiredMsg struct{ seq int }

// model is the bubbletea model hosting the four-tab editing surface.
type model struct {
	state    *contentstate.State
	coord    *viewcoord.Coordinator
	surfaces *surfaces
	board    *noticeBoard
	guard    *exitGuard
	gen      *generator.Client
	genReq   generator.Request

	contentVP viewport.Model // raw and preview tabs
	leftVP    viewport.Model // comparison original pane
	rightVP   viewport.Model // comparison edited pane
	editor    textarea.Model

	width  int
	height int
	ready  bool

	scheduledNotice int
	confirmQuit     bool
	confirmMessage  string
	generating      bool
	quitting        bool
}

func newModel(state *contentstate.State, coord *viewcoord.Coordinator, surf *surfaces, board *noticeBoard, guard *exitGuard, gen *generator.Client, genReq generator.Request) model {
	ed := textarea.New()
	ed.Placeholder = "Edit the report..."
	ed.CharLimit = 0

	return model{
		state:    state,
		coord:    coord,
		surfaces: surf,
		board:    board,
		guard:    guard,
		gen:      gen,
		genReq:   genReq,
		editor:   ed,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		if !m.ready {
			m.ready = true
			_ = m.coord.SwitchTab(contentstate.TabRaw)
			m.refreshSurfaces()
		}

	case noticeExpiredMsg:
		m.board.dismiss(msg.seq)

	case generatedMsg:
		m.generating = false
		if msg.err != nil {
			m.board.ShowNotice(viewcoord.NoticeError, fmt.Sprintf("Generation failed: %v", msg.err), 10*time.Second)
		} else {
			m.state.SetOriginalContent(msg.report.Content, msg.report.Metadata)
			m.syncEditorFromState()
			m.refreshSurfaces()
		}

	case tea.KeyMsg:
		if m.confirmQuit {
			return m.updateQuitConfirm(msg)
		}
		if handled, next, cmd := m.updateKeys(msg); handled {
			return next, cmd
		}
	}

	cmds = append(cmds, m.routeToWidgets(msg))
	m.syncComparisonScroll()

	if cmd := m.scheduleNoticeDismiss(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// updateKeys handles the global key map. Returns handled=false for keys that
// should flow into the focused widget.
func (m model) updateKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	active := m.state.ActiveTab()
	key := msg.String()

	switch key {
	case "ctrl+c":
		next, cmd := m.requestQuit()
		return true, next, cmd

	case "tab":
		next, cmd := m.switchTo(m.adjacentTab(1))
		return true, next, cmd

	case "shift+tab":
		next, cmd := m.switchTo(m.adjacentTab(-1))
		return true, next, cmd

	case "ctrl+s":
		m.state.Save()
		m.board.ShowNotice(viewcoord.NoticeInfo, "Saved.", 3*time.Second)
		return true, m, m.scheduleNoticeDismiss()

	case "ctrl+r":
		m.state.Reset()
		m.syncEditorFromState()
		m.refreshSurfaces()
		return true, m, nil

	case "ctrl+g":
		next, cmd := m.startGeneration()
		return true, next, cmd
	}

	if active != contentstate.TabEditor {
		switch key {
		case "q":
			next, cmd := m.requestQuit()
			return true, next, cmd
		case "1", "2", "3", "4":
			next, cmd := m.switchTo(tabOrder[key[0]-'1'])
			return true, next, cmd
		}
	}

	if active == contentstate.TabComparison {
		switch key {
		case "n", "right":
			m.surfaces.withComparison(func(v *comparison.View) { v.SelectNext() })
			m.refreshComparisonPanes()
			return true, m, nil
		case "p", "left":
			m.surfaces.withComparison(func(v *comparison.View) { v.SelectPrev() })
			m.refreshComparisonPanes()
			return true, m, nil
		case "r", "enter":
			m.revertSelected()
			return true, m, nil
		}
	}

	return false, m, nil
}

func (m model) updateQuitConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.quitting = true
		return m, tea.Quit
	default:
		m.confirmQuit = false
		return m, nil
	}
}

func (m model) requestQuit() (tea.Model, tea.Cmd) {
	if message, block := m.guard.consult(); block {
		m.confirmQuit = true
		m.confirmMessage = message
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}

func (m model) switchTo(tab contentstate.Tab) (tea.Model, tea.Cmd) {
	prev := m.state.ActiveTab()
	_ = m.coord.SwitchTab(tab)
	now := m.state.ActiveTab()

	if now == contentstate.TabEditor && prev != contentstate.TabEditor {
		m.syncEditorFromState()
		m.editor.Focus()
	}
	if now != contentstate.TabEditor {
		m.editor.Blur()
	}
	if now == contentstate.TabComparison {
		m.refreshComparisonPanes()
	}
	m.refreshContentViewport()
	return m, m.scheduleNoticeDismiss()
}

func (m *model) adjacentTab(delta int) contentstate.Tab {
	active := m.state.ActiveTab()
	for i, tab := range tabOrder {
		if tab == active {
			return tabOrder[(i+delta+len(tabOrder))%len(tabOrder)]
		}
	}
	return contentstate.TabRaw
}

func (m model) startGeneration() (tea.Model, tea.Cmd) {
	if m.gen == nil {
		m.board.ShowNotice(viewcoord.NoticeError, "Generation is not configured (no API key).", 10*time.Second)
		return m, m.scheduleNoticeDismiss()
	}
	if m.generating {
		return m, nil
	}
	m.generating = true
	gen, req := m.gen, m.genReq
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		report, err := gen.Generate(ctx, req)
		return generatedMsg{report: report, err: err}
	}
}

func (m *model) revertSelected() {
	var (
		next string
		err  error
		ok   bool
	)
	m.surfaces.withComparison(func(v *comparison.View) {
		if _, selected := v.Selected(); !selected {
			return
		}
		next, err = v.RevertSelected()
		ok = err == nil
	})
	if err != nil {
		m.board.ShowNotice(viewcoord.NoticeError, fmt.Sprintf("Revert failed: %v", err), 10*time.Second)
		return
	}
	if !ok {
		return
	}
	m.state.SetEditedContent(next, nil)
	m.refreshSurfaces()
}

// routeToWidgets forwards msg to whichever widget owns the active tab.
func (m *model) routeToWidgets(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.state.ActiveTab() {
	case contentstate.TabRaw, contentstate.TabPreview:
		m.contentVP, cmd = m.contentVP.Update(msg)

	case contentstate.TabEditor:
		before := m.editor.Value()
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			m.state.SetEditedContent(after, nil)
		}

	case contentstate.TabComparison:
		m.leftVP, cmd = m.leftVP.Update(msg)
	}
	return cmd
}

// syncComparisonScroll mirrors the left pane's scroll position onto the right
// pane, proportionally when the panes have different line counts.
func (m *model) syncComparisonScroll() {
	if m.state.ActiveTab() != contentstate.TabComparison {
		return
	}
	var leftLines, rightLines []string
	m.surfaces.withComparison(func(v *comparison.View) {
		leftLines, rightLines = v.Lines()
	})
	offset := comparison.SyncOffset(m.leftVP.YOffset, len(leftLines), len(rightLines), m.rightVP.Height)
	m.rightVP.SetYOffset(offset)
}

func (m *model) syncEditorFromState() {
	m.editor.SetValue(m.state.EditedContent().Content)
}

// refreshSurfaces re-renders the active tab's surface after a content
// mutation so the screen reflects the new state.
func (m *model) refreshSurfaces() {
	active := m.state.ActiveTab()
	_ = m.surfaces.Render(active, m.state.ContentForTab(active))
	if active == contentstate.TabComparison {
		m.refreshComparisonPanes()
	}
	m.refreshContentViewport()
}

func (m *model) refreshContentViewport() {
	switch m.state.ActiveTab() {
	case contentstate.TabRaw:
		m.contentVP.SetContent(m.surfaces.raw())
	case contentstate.TabPreview:
		m.contentVP.SetContent(m.surfaces.previewSource())
	}
}

func (m *model) refreshComparisonPanes() {
	var leftLines, rightLines []string
	m.surfaces.withComparison(func(v *comparison.View) {
		leftLines, rightLines = v.Lines()
	})
	m.leftVP.SetContent(strings.Join(leftLines, "\n"))
	m.rightVP.SetContent(strings.Join(rightLines, "\n"))
	m.syncComparisonScroll()
}

func (m *model) layout() {
	bodyHeight := m.height - headerHeight - noticeHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	if !m.ready {
		m.contentVP = viewport.New(m.width, bodyHeight)
		paneWidth := (m.width - 3) / 2
		m.leftVP = viewport.New(paneWidth, bodyHeight)
		m.rightVP = viewport.New(paneWidth, bodyHeight)
	} else {
		m.contentVP.Width = m.width
		m.contentVP.Height = bodyHeight
		paneWidth := (m.width - 3) / 2
		m.leftVP.Width = paneWidth
		m.leftVP.Height = bodyHeight
		m.rightVP.Width = paneWidth
		m.rightVP.Height = bodyHeight
	}

	m.editor.SetWidth(m.width)
	m.editor.SetHeight(bodyHeight)
}

// scheduleNoticeDismiss arms a dismiss tick for a newly shown transient
// notice. Persistent notices (duration 0) are never auto-dismissed.
func (m *model) scheduleNoticeDismiss() tea.Cmd {
	seq, _, _, duration, ok := m.board.current()
	if !ok || duration <= 0 || seq == m.scheduledNotice {
		return nil
	}
	m.scheduledNotice = seq
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}
