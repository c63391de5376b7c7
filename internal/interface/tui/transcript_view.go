package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/neilberkman/cfchat/internal/core/export"
	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/store"
)

// renderTranscript renders the active conversation for the viewport.
// pending is the message currently being sent, shown until the reply lands.
func renderTranscript(st store.State, pending string, width int) string {
	var b strings.Builder

	wrapWidth := width - 2
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	if st.TranscriptLoading {
		b.WriteString(pendingStyle.Render("Loading session…"))
		return b.String()
	}

	if !st.Active.IsSet() && len(st.Transcript) == 0 && pending == "" {
		b.WriteString(titleStyle.Render("New chat"))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("Type a message below to start. The session is created when you send it."))
		return b.String()
	}

	for _, msg := range st.Transcript {
		writeMessage(&b, msg, wrapWidth)
	}

	if pending != "" {
		writeMessage(&b, models.UserMessage(pending), wrapWidth)
		b.WriteString(pendingStyle.Render("Thinking…"))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeMessage(b *strings.Builder, msg models.Message, wrapWidth int) {
	var style lipgloss.Style
	if msg.Role == models.RoleUser {
		style = userStyle
	} else {
		style = assistantStyle
	}

	b.WriteString(style.Render("▸ " + strings.ToUpper(export.Label(msg.Role))))
	if !msg.CreatedAt.IsZero() {
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(formatTime(msg.CreatedAt)))
	}
	b.WriteString("\n")
	b.WriteString(wordwrap.String(msg.Content, wrapWidth))
	b.WriteString("\n\n")
}

func transcriptTitle(st store.State) string {
	if s, ok := st.ActiveSession(); ok {
		return s.DisplayTitle()
	}
	if id, ok := st.Active.Get(); ok {
		return "Session " + id.Short(12)
	}
	return "New chat"
}
