package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/store"
)

const statusTimeout = 4 * time.Second

// stateMsg carries a snapshot pushed by the controller's change listener.
type stateMsg struct {
	state store.State
}

type notifyMsg struct {
	note controller.Notification
}

type actionKind int

const (
	actionStartup actionKind = iota
	actionRefresh
	actionSelect
	actionSend
	actionDelete
	actionNewChat
)

// actionMsg reports a finished controller call along with the state it left.
type actionMsg struct {
	kind  actionKind
	text  string // message text, for sends
	err   error
	state store.State
}

type copiedMsg struct {
	err error
}

type clearStatusMsg struct {
	id int
}

// Every controller call runs inside a command so that the change listener,
// which sends into the program, is never invoked from the update loop.

func startupCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.Startup(context.Background())
		return actionMsg{kind: actionStartup, err: err, state: ctrl.State()}
	}
}

func refreshCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.RefreshSessions(context.Background())
		return actionMsg{kind: actionRefresh, err: err, state: ctrl.State()}
	}
}

func selectCmd(ctrl *controller.Controller, id models.SessionID) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.SelectSession(context.Background(), id)
		return actionMsg{kind: actionSelect, err: err, state: ctrl.State()}
	}
}

func sendCmd(ctrl *controller.Controller, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := ctrl.SendMessage(context.Background(), text)
		return actionMsg{kind: actionSend, text: text, err: err, state: ctrl.State()}
	}
}

func deleteCmd(ctrl *controller.Controller, id models.SessionID) tea.Cmd {
	return func() tea.Msg {
		err := ctrl.DeleteSession(context.Background(), id)
		return actionMsg{kind: actionDelete, err: err, state: ctrl.State()}
	}
}

func newChatCmd(ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.StartNewChat()
		return actionMsg{kind: actionNewChat, state: ctrl.State()}
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboard.WriteAll(text)}
	}
}

func clearStatusAfter(id int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}
