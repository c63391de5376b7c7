package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/gateway"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/store"
	"github.com/neilberkman/cfchat/internal/devserver"
)

type harness struct {
	ctrl *controller.Controller
	gw   *gateway.Client
}

func newHarness(t *testing.T) harness {
	t.Helper()
	database, err := devserver.Open(filepath.Join(t.TempDir(), "dev.db"))
	if err != nil {
		t.Fatalf("devserver.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	srv := httptest.NewServer(devserver.New(database, devserver.EchoResponder{}, ""))
	t.Cleanup(srv.Close)

	gw := gateway.NewClient(srv.URL, "", 5*time.Second)
	ctrl := controller.New(gw, nil)
	t.Cleanup(ctrl.Wait)
	return harness{ctrl: ctrl, gw: gw}
}

func (h harness) seed(t *testing.T, text string) models.SessionID {
	t.Helper()
	res, err := h.gw.SendMessage(context.Background(), models.None(), text)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return res.SessionID
}

func newModel(t *testing.T, ctrl *controller.Controller) Model {
	t.Helper()
	m := New(ctrl, "http://test")
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

// feed runs a controller command and delivers its result.
func feed(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	if _, ok := msg.(actionMsg); !ok {
		t.Fatalf("expected actionMsg, got %T", msg)
	}
	return update(t, m, msg)
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func listIDs(m Model) []models.SessionID {
	var ids []models.SessionID
	for _, item := range m.list.Items() {
		ids = append(ids, item.(sessionListItem).session.ID)
	}
	return ids
}

func TestStartupPopulatesSidebar(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "first topic")
	h.seed(t, "second topic")

	m := newModel(t, h.ctrl)
	m = feed(t, m, startupCmd(h.ctrl))

	if ids := listIDs(m); len(ids) != 2 {
		t.Fatalf("sidebar has %d rows, want 2", len(ids))
	}
	if first := m.list.Items()[0].(sessionListItem); first.session.Title != "second topic" {
		t.Errorf("first row = %q, want newest session", first.session.Title)
	}
	if view := m.View(); !strings.Contains(view, "second topic") || !strings.Contains(view, "New chat") {
		t.Errorf("view missing expected content:\n%s", view)
	}
}

func TestSendFromNewChat(t *testing.T) {
	h := newHarness(t)
	m := newModel(t, h.ctrl)
	m = feed(t, m, startupCmd(h.ctrl))

	m.input.SetValue("hello there")
	m, cmd := press(t, m, "enter")
	if m.pending != "hello there" || m.input.Value() != "" {
		t.Fatalf("pending = %q, input = %q", m.pending, m.input.Value())
	}
	if !strings.Contains(m.viewport.View(), "Thinking") {
		t.Error("expected pending message in transcript")
	}

	m = feed(t, m, cmd)
	if m.pending != "" {
		t.Error("pending should be cleared after the reply")
	}
	if !m.state.Active.IsSet() {
		t.Fatal("expected an active session after first send")
	}
	if len(m.state.Transcript) != 2 || m.state.Transcript[1].Content != "echo: hello there" {
		t.Errorf("transcript = %+v", m.state.Transcript)
	}

	h.ctrl.Wait()
	m = update(t, m, stateMsg{state: h.ctrl.State()})
	if ids := listIDs(m); len(ids) != 1 {
		t.Errorf("sidebar = %v, want the new session", ids)
	}
	if first := m.list.Items()[0].(sessionListItem); !first.active {
		t.Error("new session should be marked active")
	}
}

func TestEmptyInputDoesNotSend(t *testing.T) {
	h := newHarness(t)
	m := newModel(t, h.ctrl)

	m.input.SetValue("   ")
	m, cmd := press(t, m, "enter")
	if cmd != nil {
		t.Error("expected no command for blank input")
	}
	if m.pending != "" {
		t.Error("blank input should not become pending")
	}
}

func TestFailedSendRestoresInput(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ctrl := controller.New(gateway.NewClient(url, "", time.Second), nil)
	m := newModel(t, ctrl)

	m.input.SetValue("lost message")
	m, cmd := press(t, m, "enter")
	m = feed(t, m, cmd)

	if m.input.Value() != "lost message" {
		t.Errorf("input = %q, want the unsent text back", m.input.Value())
	}
	if !m.statusErr || !strings.Contains(m.status, "Cannot reach the server") {
		t.Errorf("status = %q (err=%v)", m.status, m.statusErr)
	}
	if m.state.Active.IsSet() || len(m.state.Transcript) != 0 {
		t.Error("failed send must leave the new chat untouched")
	}
}

func TestSelectFromSidebar(t *testing.T) {
	h := newHarness(t)
	older := h.seed(t, "older")
	h.seed(t, "newer")

	m := newModel(t, h.ctrl)
	m = feed(t, m, startupCmd(h.ctrl))
	m, _ = press(t, m, "tab")
	if m.focus != focusSidebar {
		t.Fatal("tab should focus the sidebar")
	}

	m, _ = press(t, m, "j")
	m, cmd := press(t, m, "enter")
	m = feed(t, m, cmd)

	if !m.state.Active.Is(older) {
		t.Errorf("active = %v, want %s", m.state.Active, older)
	}
	if m.focus != focusInput {
		t.Error("opening a session should focus the input")
	}
	if content := renderTranscript(m.state, "", 80); !strings.Contains(content, "echo: older") {
		t.Errorf("transcript missing reply:\n%s", content)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	keep := h.seed(t, "keep")
	drop := h.seed(t, "drop")

	m := newModel(t, h.ctrl)
	m = feed(t, m, startupCmd(h.ctrl))
	m, _ = press(t, m, "tab")

	m, cmd := press(t, m, "d")
	if !m.confirmDelete.Is(drop) || !strings.Contains(m.status, "drop") {
		t.Fatalf("expected confirmation for %s, got %v / %q", drop, m.confirmDelete, m.status)
	}
	if cmd == nil {
		t.Error("expected status timeout command")
	}

	m, _ = press(t, m, "n")
	if m.confirmDelete.IsSet() || len(listIDs(m)) != 2 {
		t.Fatal("any other key should cancel the delete")
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	m = feed(t, m, cmd)

	if ids := listIDs(m); len(ids) != 1 || ids[0] != keep {
		t.Errorf("sidebar = %v, want [%s]", ids, keep)
	}
}

func TestFilterSidebar(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "graph search")
	h.seed(t, "dynamic programming")
	h.seed(t, "graph coloring")

	m := newModel(t, h.ctrl)
	m = feed(t, m, startupCmd(h.ctrl))
	m, _ = press(t, m, "tab")
	m, _ = press(t, m, "/")
	if !m.filtering {
		t.Fatal("/ should start filtering")
	}
	for _, r := range "graph" {
		m, _ = press(t, m, string(r))
	}
	if ids := listIDs(m); len(ids) != 2 {
		t.Errorf("filtered sidebar has %d rows, want 2", len(ids))
	}

	m, _ = press(t, m, "esc")
	if m.filtering || len(listIDs(m)) != 3 {
		t.Error("esc should clear the filter")
	}
}

func TestStatusHandling(t *testing.T) {
	h := newHarness(t)
	m := newModel(t, h.ctrl)

	m = update(t, m, actionMsg{kind: actionSelect, err: controller.ErrSuperseded, state: store.State{}})
	if m.status != "" {
		t.Errorf("superseded results must be silent, got %q", m.status)
	}

	m = update(t, m, actionMsg{kind: actionSelect, err: controller.ErrDeletePending})
	if !m.statusErr || m.status != "That session is being deleted" {
		t.Errorf("status = %q", m.status)
	}

	m = update(t, m, notifyMsg{note: controller.Notification{Kind: controller.SessionDeleted}})
	if m.statusErr || m.status != "Session deleted" {
		t.Errorf("status = %q", m.status)
	}

	id := m.statusID
	m = update(t, m, clearStatusMsg{id: id - 1})
	if m.status == "" {
		t.Error("an older timeout must not clear a newer status")
	}
	m = update(t, m, clearStatusMsg{id: id})
	if m.status != "" {
		t.Error("status should clear after its timeout")
	}
}

func TestRenderTranscriptWraps(t *testing.T) {
	st := store.State{
		Active: models.Some("1"),
		Transcript: []models.Message{
			{Role: models.RoleUser, Content: strings.Repeat("word ", 30)},
			{Role: models.RoleAssistant, Content: "short"},
		},
	}

	out := renderTranscript(st, "", 40)
	if !strings.Contains(out, "YOU") || !strings.Contains(out, "ASSISTANT") {
		t.Errorf("missing role labels:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 60 {
			t.Errorf("line not wrapped (%d chars): %q", len(line), line)
		}
	}

	if out := renderTranscript(store.State{TranscriptLoading: true}, "", 40); !strings.Contains(out, "Loading") {
		t.Errorf("loading state = %q", out)
	}
}
