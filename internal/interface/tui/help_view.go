package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	m.showHelp = false
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
cfchat - Help
═════════════

SESSIONS (left pane)
────────────────────
  ↑/↓, j/k     Move the cursor
  Enter        Open the session under the cursor
  n            Start a new chat
  d            Delete the session under the cursor (y to confirm)
  r            Refresh the session list
  /            Filter by title (after:<date>, before:<date>)
  y            Copy the last reply to the clipboard
  Tab          Focus the message input
  q            Quit

MESSAGE INPUT
─────────────
  Enter        Send
  Tab, Esc     Back to the session list
  PgUp/PgDn    Scroll the transcript
  Ctrl+N       Start a new chat

  Ctrl+C quits from anywhere.

Press any key to return
`

	return helpStyle.Render(help)
}
