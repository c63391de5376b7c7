package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/models"
	"github.com/neilberkman/cfchat/internal/core/search"
)

var (
	listLimit  int
	listSince  string
	listBefore string
	listJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List chat sessions",
	Long: `List the server's recent chat sessions, newest first.

The query filters by title and accepts after:<date> and before:<date> tokens.
Dates may be ISO dates or natural language.

Examples:
  cfchat list
  cfchat list --limit 5
  cfchat list --since yesterday
  cfchat list "graph after:2025-01-01"`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of sessions to display (0 for all)")
	listCmd.Flags().StringVar(&listSince, "since", "", "Only sessions updated after this date")
	listCmd.Flags().StringVar(&listBefore, "before", "", "Only sessions updated before this date")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print sessions as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()
	filters := search.ParseFilters(strings.Join(args, " "), now)
	if listSince != "" {
		t, err := search.ParseDate(listSince, now)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		filters.After, filters.HasAfter = t, true
	}
	if listBefore != "" {
		t, err := search.ParseDate(listBefore, now)
		if err != nil {
			return fmt.Errorf("invalid --before: %w", err)
		}
		filters.Before, filters.HasBefore = t, true
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctrl := newController(cfg, nil)
	if err := ctrl.Startup(cmd.Context()); err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := filters.Apply(ctrl.State().Sessions)
	if listLimit > 0 && len(sessions) > listLimit {
		sessions = sessions[:listLimit]
	}

	out := cmd.OutOrStdout()
	if listJSON {
		if sessions == nil {
			sessions = []models.Session{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	if len(sessions) == 0 {
		if filters.IsEmpty() {
			fmt.Fprintln(out, "No sessions found. Run 'cfchat send <message>' to start one.")
		} else {
			fmt.Fprintln(out, "No sessions match the filter.")
		}
		return nil
	}

	fmt.Fprintf(out, "Showing %d session(s)\n\n", len(sessions))
	for i, s := range sessions {
		fmt.Fprintf(out, "[%d] %s\n", i+1, s.ID)
		fmt.Fprintf(out, "    Title: %s\n", truncateTitle(s.DisplayTitle(), 80))
		fmt.Fprintf(out, "    Messages: %d\n", s.MessageCount)
		if !s.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "    Updated: %s\n", humanize.Time(s.UpdatedAt))
		}
		fmt.Fprintln(out)
	}

	return nil
}

// truncateTitle flattens whitespace and cuts long titles at a word boundary
func truncateTitle(title string, maxLen int) string {
	title = strings.Join(strings.Fields(title), " ")

	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}

	truncated := string(runes[:maxLen])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > len(truncated)-20 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
