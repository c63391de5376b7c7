package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/models"
)

var sendSession string

var sendCmd = &cobra.Command{
	Use:   "send [--session id] <message>",
	Short: "Send a message and print the reply",
	Long: `Send a message and print the assistant's reply.

Without --session a new session is created. Use "-" as the message to read
it from stdin.

Examples:
  cfchat send "What is a segment tree?"
  cfchat send --session 12 "Show me the update step"
  git diff | cfchat send -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendSession, "session", "s", "", "Session to continue")
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctrl := newController(cfg, nil)
	defer ctrl.Wait()

	if sendSession != "" {
		id := models.SessionID(sendSession)
		if err := ctrl.SelectSession(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to open session %s: %w", id, err)
		}
	}

	result, err := ctrl.SendMessage(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Reply.Content)
	if sendSession == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Session: %s\n", result.SessionID)
	}
	return nil
}
