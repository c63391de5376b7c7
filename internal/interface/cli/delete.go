package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/models"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Delete one or more sessions",
	Long: `Delete sessions on the server. Deleting a session that no longer
exists is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctrl := newController(cfg, nil)
	defer ctrl.Wait()

	var failed int
	for _, arg := range args {
		id := models.SessionID(arg)
		if err := ctrl.DeleteSession(cmd.Context(), id); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Failed to delete %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deletes failed", failed, len(args))
	}
	return nil
}
