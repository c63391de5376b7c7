package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/interface/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive chat UI",
	Long:  "Launch a terminal UI with the session list on the left and the open conversation on the right",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	bridge := &tui.Bridge{}
	ctrl := newController(cfg, bridge)

	if err := tui.Run(ctrl, bridge, cfg.ServerURL); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
