package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/store"
)

// Bridge forwards controller notifications and state changes into a running
// program. Pass it to controller.New before calling Run.
type Bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *Bridge) Notify(n controller.Notification) {
	b.send(notifyMsg{note: n})
}

func (b *Bridge) attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run starts the TUI and blocks until the user quits.
func Run(ctrl *controller.Controller, bridge *Bridge, serverURL string) error {
	p := tea.NewProgram(
		New(ctrl, serverURL),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	bridge.attach(p)
	ctrl.SetOnChangeListener(func(st store.State) {
		bridge.send(stateMsg{state: st})
	})
	defer func() {
		ctrl.SetOnChangeListener(nil)
		bridge.attach(nil)
		ctrl.Wait()
	}()

	_, err := p.Run()
	return err
}
