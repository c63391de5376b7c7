package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/gateway"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/search"
	"github.com/neilberkman/cfchat/internal/core/store"
)

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

type Model struct {
	ctrl      *controller.Controller
	serverURL string
	state     store.State

	list        list.Model
	viewport    viewport.Model
	input       textinput.Model
	filterInput textinput.Model
	filters     search.Filters
	filtering   bool

	focus         focus
	showHelp      bool
	confirmDelete models.OptionalID
	// pending is the text of the message being sent
	pending string

	status    string
	statusErr bool
	statusID  int

	width  int
	height int
}

func New(ctrl *controller.Controller, serverURL string) Model {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.Prompt = "> "
	input.Focus()

	filter := textinput.New()
	filter.Prompt = "/"
	filter.Placeholder = "title, after:yesterday"

	return Model{
		ctrl:        ctrl,
		serverURL:   serverURL,
		state:       ctrl.State(),
		list:        createSessionList(30, 10),
		viewport:    viewport.New(40, 10),
		input:       input,
		filterInput: filter,
		focus:       focusInput,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(startupCmd(m.ctrl), textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.resize()
		return m, nil

	case stateMsg:
		return m.applyState(msg.state)

	case actionMsg:
		return m.handleAction(msg)

	case notifyMsg:
		return m.setStatus(msg.note.Message(), false)

	case copiedMsg:
		if msg.err != nil {
			return m.setStatus("Clipboard unavailable: "+msg.err.Error(), true)
		}
		return m.setStatus("Reply copied to clipboard", false)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.kind == actionSend {
		m.pending = ""
	}

	m, cmd := m.applyState(msg.state)
	if msg.err == nil {
		if msg.kind == actionSelect || msg.kind == actionNewChat {
			m = m.focusOn(focusInput)
		}
		return m, cmd
	}

	if errors.Is(msg.err, controller.ErrSuperseded) {
		return m, cmd
	}
	if msg.kind == actionSend && m.input.Value() == "" {
		// Give the text back so the user can retry
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
	}

	m, statusCmd := m.setStatus(errorText(msg.err), true)
	return m, tea.Batch(cmd, statusCmd)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		return m.updateHelp(msg)
	}
	if m.filtering {
		return m.updateFilter(msg)
	}
	if id, ok := m.confirmDelete.Get(); ok {
		m.confirmDelete = models.None()
		switch msg.String() {
		case "y", "Y", "enter":
			return m, deleteCmd(m.ctrl, id)
		}
		return m.setStatus("Delete cancelled", false)
	}

	if msg.String() == "ctrl+n" {
		return m, newChatCmd(m.ctrl)
	}

	if m.focus == focusInput {
		return m.updateInput(msg)
	}
	return m.updateSidebar(msg)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if m.pending != "" {
			return m.setStatus(errorText(controller.ErrSendInFlight), true)
		}
		m.pending = text
		m.input.Reset()
		m = m.refreshTranscript(true)
		return m, sendCmd(m.ctrl, text)

	case "tab", "esc":
		return m.focusOn(focusSidebar), nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "tab":
		return m.focusOn(focusInput), textinput.Blink

	case "enter":
		if s, ok := m.selectedSession(); ok {
			return m, selectCmd(m.ctrl, s.ID)
		}
		return m, nil

	case "n":
		return m, newChatCmd(m.ctrl)

	case "d":
		if s, ok := m.selectedSession(); ok {
			m.confirmDelete = models.Some(s.ID)
			return m.setStatus(fmt.Sprintf("Delete %q? (y/n)", s.DisplayTitle()), false)
		}
		return m, nil

	case "r":
		return m, refreshCmd(m.ctrl)

	case "/":
		m.filtering = true
		m.filterInput.Focus()
		return m, textinput.Blink

	case "esc":
		if !m.filters.IsEmpty() {
			m.filterInput.Reset()
			m.filters = search.Filters{}
			return m.syncList()
		}
		return m, nil

	case "y":
		if reply, ok := m.state.LastReply(); ok {
			return m, copyCmd(reply.Content)
		}
		return m.setStatus("Nothing to copy yet", false)

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.Reset()
		m.filters = search.Filters{}
		return m.syncList()
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.filters = search.ParseFilters(m.filterInput.Value(), time.Now())
	m, listCmd := m.syncList()
	return m, tea.Batch(cmd, listCmd)
}

func (m Model) focusOn(f focus) Model {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	return m
}

// applyState adopts a controller snapshot. Snapshots may arrive out of
// order from the listener and from finished commands; both are complete
// states, so the latest one delivered wins.
func (m Model) applyState(st store.State) (Model, tea.Cmd) {
	follow := len(st.Transcript) != len(m.state.Transcript) ||
		st.Active != m.state.Active ||
		st.TranscriptLoading != m.state.TranscriptLoading
	m.state = st

	m, cmd := m.syncList()
	m = m.refreshTranscript(follow)
	return m, cmd
}

func (m Model) refreshTranscript(follow bool) Model {
	m.viewport.SetContent(renderTranscript(m.state, m.pending, m.viewport.Width))
	if follow || m.pending != "" {
		m.viewport.GotoBottom()
	}
	return m
}

func (m Model) setStatus(text string, isErr bool) (Model, tea.Cmd) {
	m.statusID++
	m.status = text
	m.statusErr = isErr
	return m, clearStatusAfter(m.statusID)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, controller.ErrDeletePending):
		return "That session is being deleted"
	case errors.Is(err, controller.ErrSendInFlight):
		return "Still waiting for the previous reply"
	case errors.Is(err, gateway.ErrNotFound):
		return "That session no longer exists"
	case errors.Is(err, gateway.ErrNetwork):
		return "Cannot reach the server: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func (m Model) sidebarWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	if w > 48 {
		w = 48
	}
	return w
}

// bodyHeight is the inner height of both panes: the total minus the input
// line, the status line and the pane borders.
func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) resize() Model {
	sw := m.sidebarWidth()
	bh := m.bodyHeight()

	m.list.SetSize(sw-2, bh-1)

	tw := m.width - sw - 4
	if tw < 20 {
		tw = 20
	}
	m.viewport.Width = tw
	m.viewport.Height = bh - 1
	m.input.Width = m.width - 4
	m.filterInput.Width = sw - 12

	return m.refreshTranscript(true)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	if m.showHelp {
		return m.viewHelp()
	}

	sw := m.sidebarWidth()
	bh := m.bodyHeight()

	leftStyle, rightStyle := blurredPaneStyle, focusedPaneStyle
	if m.focus == focusSidebar {
		leftStyle, rightStyle = focusedPaneStyle, blurredPaneStyle
	}

	left := leftStyle.Width(sw - 2).Height(bh).Render(m.viewList())
	right := rightStyle.Width(m.viewport.Width).Height(bh).Render(
		titleStyle.Render(transcriptTitle(m.state)) + "\n" + m.viewport.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return body + "\n" + m.input.View() + "\n" + m.statusLine()
}

func (m Model) statusLine() string {
	if m.status != "" {
		if m.statusErr {
			return errorStyle.Render(m.status)
		}
		return statusStyle.Render(m.status)
	}

	var hint string
	if m.focus == focusInput {
		hint = "enter send • tab sessions • ctrl+n new chat • ctrl+c quit"
	} else {
		hint = "enter open • n new • d delete • r refresh • / filter • y copy • ? help • q quit"
	}
	if m.state.Sending {
		hint = "sending… • " + hint
	}
	return helpStyle.Render(hint + " • " + m.serverURL)
}
