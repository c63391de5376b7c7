package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/search"
)

type sessionListItem struct {
	session models.Session
	active  bool
}

func (i sessionListItem) FilterValue() string {
	return i.session.DisplayTitle()
}

func (i sessionListItem) Title() string {
	return i.session.DisplayTitle()
}

func (i sessionListItem) Description() string {
	return fmt.Sprintf("%d messages • %s", i.session.MessageCount, formatTime(i.session.UpdatedAt))
}

// sessionDelegate highlights the active session as well as the cursor row
type sessionDelegate struct {
	list.DefaultDelegate
}

func (d sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	s, ok := item.(sessionListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	width := m.Width() - 4
	if width < 10 {
		width = 10
	}
	title := truncate.StringWithTail(s.Title(), uint(width), "…")
	desc := truncate.StringWithTail(s.Description(), uint(width), "…")
	if s.active {
		title = "● " + title
	}

	switch {
	case index == m.Index():
		title = selectedItemStyle.Render(title)
		desc = selectedItemStyle.Faint(true).Render(desc)
	case s.active:
		title = activeItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createSessionList(width, height int) list.Model {
	delegate := sessionDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(nil, delegate, width, height)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // filtering goes through search.Filters
	l.DisableQuitKeybindings()
	return l
}

// sessionItems builds sidebar rows in server order.
func sessionItems(sessions []models.Session, active models.OptionalID, filters search.Filters) []list.Item {
	visible := filters.Apply(sessions)
	items := make([]list.Item, len(visible))
	for i, s := range visible {
		items[i] = sessionListItem{session: s, active: active.Is(s.ID)}
	}
	return items
}

// syncList refreshes the sidebar rows from the current state, keeping the
// cursor on the same session when it is still listed.
func (m Model) syncList() (Model, tea.Cmd) {
	var cursorID models.SessionID
	if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
		cursorID = selected.session.ID
	}

	items := sessionItems(m.state.Sessions, m.state.Active, m.filters)
	cmd := m.list.SetItems(items)

	for i, item := range items {
		if item.(sessionListItem).session.ID == cursorID {
			m.list.Select(i)
			return m, cmd
		}
	}
	if m.list.Index() >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	return m, cmd
}

func (m Model) selectedSession() (models.Session, bool) {
	selected, ok := m.list.SelectedItem().(sessionListItem)
	if !ok {
		return models.Session{}, false
	}
	return selected.session, true
}

func (m Model) viewList() string {
	header := titleStyle.Render("Sessions")
	switch {
	case m.filtering:
		header += " " + m.filterInput.View()
	case !m.filters.IsEmpty():
		header += helpStyle.Render(" (" + m.filterInput.Value() + ")")
	}
	if m.state.SessionsLoading {
		header += helpStyle.Render(" loading…")
	}

	if len(m.list.Items()) == 0 {
		empty := "No sessions yet."
		if !m.filters.IsEmpty() {
			empty = "No matching sessions."
		}
		return header + "\n\n" + itemStyle.Render(empty)
	}
	return header + "\n" + m.list.View()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}
