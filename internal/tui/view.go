package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ryo8073/report-gen-sub006/internal/comparison"
	"github.com/ryo8073/report-gen-sub006/internal/contentstate"
	"github.com/ryo8073/report-gen-sub006/internal/q/uni"
)

const (
	headerHeight = 2
	noticeHeight = 1
	footerHeight = 1
)

var tabLabels = map[contentstate.Tab]string{
	contentstate.TabRaw:        "1 Raw",
	contentstate.TabPreview:    "2 Preview",
	contentstate.TabEditor:     "3 Editor",
	contentstate.TabComparison: "4 Comparison",
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading...\n"
	}
	if m.confirmQuit {
		return m.renderQuitConfirm()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderNotice())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m model) renderHeader() string {
	active := m.state.ActiveTab()

	var tabs []string
	for _, tab := range tabOrder {
		label := tabLabels[tab]
		if tab == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	snap := m.state.State()
	status := fmt.Sprintf("v%d", snap.Version)
	if snap.IsDirty {
		status = dirtyStyle.Render("● unsaved") + statusStyle.Render("  "+status)
	} else if snap.LastSaved != nil {
		status = statusStyle.Render(fmt.Sprintf("saved %s  %s", snap.LastSaved.Format("15:04:05"), status))
	} else {
		status = statusStyle.Render(status)
	}
	if m.generating {
		status = statusStyle.Render("generating...  ") + status
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	gap := m.width - lipgloss.Width(line) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return line + strings.Repeat(" ", gap) + status + "\n" +
		separatorStyle.Render(strings.Repeat("─", max(m.width, 1)))
}

func (m model) renderBody() string {
	switch m.state.ActiveTab() {
	case contentstate.TabEditor:
		return m.editor.View()
	case contentstate.TabComparison:
		return m.renderComparison()
	default:
		return m.contentVP.View()
	}
}

func (m model) renderComparison() string {
	sep := separatorStyle.Render(" │ ")
	return lipgloss.JoinHorizontal(lipgloss.Top, m.leftVP.View(), sep, m.rightVP.View())
}

func (m model) renderNotice() string {
	_, kind, message, _, ok := m.board.current()
	if !ok {
		return ""
	}
	style, found := noticeStyles[kind]
	if !found {
		style = statusStyle
	}
	// The notice owns exactly one line; clamp by display width so wide
	// runes never push it onto a second one.
	return style.Render(uni.Truncate(message, max(m.width, 1), "…", nil))
}

func (m model) renderFooter() string {
	var keys string
	switch m.state.ActiveTab() {
	case contentstate.TabEditor:
		keys = "tab: next view  ctrl+s: save  ctrl+r: reset  ctrl+c: quit"
	case contentstate.TabComparison:
		var count int
		m.surfaces.withComparison(func(v *comparison.View) { count = v.ChangeCount() })
		keys = fmt.Sprintf("%d changes  n/p: select  r: revert  j/k: scroll  ctrl+s: save  q: quit", count)
	default:
		keys = "1-4/tab: views  ctrl+g: generate  ctrl+s: save  j/k: scroll  q: quit"
	}
	return footerStyle.Render(uni.Truncate(keys, max(m.width, 1), "…", nil))
}

func (m model) renderQuitConfirm() string {
	return fmt.Sprintf("\n  %s\n\n  %s\n",
		m.confirmMessage,
		statusStyle.Render("y: discard and quit   any other key: stay"))
}
