package cli

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/export"
	"github.com/neilberkman/cfchat/internal/core/models"
)

var showWidth int

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showWidth, "width", 100, "Wrap messages at this many columns (0 to disable)")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctrl := newController(cfg, nil)
	id := models.SessionID(args[0])
	if err := ctrl.SelectSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	out := cmd.OutOrStdout()
	st := ctrl.State()
	if len(st.Transcript) == 0 {
		fmt.Fprintf(out, "Session %s has no messages.\n", id)
		return nil
	}

	for i, m := range st.Transcript {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s:\n", export.Label(m.Role))
		content := strings.TrimRight(m.Content, "\n")
		if showWidth > 0 {
			content = wordwrap.String(content, showWidth)
		}
		fmt.Fprintln(out, content)
	}
	return nil
}
