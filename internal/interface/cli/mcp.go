package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/cmd/cfchat/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing chat sessions as tools",
	Long: `Start an MCP (Model Context Protocol) server on stdio so an assistant
can list, read, continue, and delete your chat sessions.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "cfchat": {
        "command": "cfchat",
        "args": ["mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	ctrl := newController(cfg, nil)
	defer ctrl.Wait()

	if err := mcp.StartServer(ctrl, version); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
