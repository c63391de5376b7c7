package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/config"
	"github.com/neilberkman/cfchat/internal/core/controller"
	"github.com/neilberkman/cfchat/internal/core/gateway"
	"github.com/neilberkman/cfchat/internal/logger"
)

var (
	serverURL   string
	configDir   string
	version     = "dev"
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(v, commit, date string) {
	version = v
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cfchat",
	Short: "Chat session client",
	Long: `cfchat - browse, continue, and manage chat sessions on a chat backend

Sessions live on the server. cfchat lists them, opens their transcripts,
sends messages, and deletes sessions you no longer need. A new session is
created by the server when you send the first message of a new chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Chat server URL (default from config or $CFCHAT_SERVER)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", config.DefaultDir(), "Config directory")
}

// loadConfig reads the config directory and applies --server on top.
// Logging goes to stderr for one-shot commands and to the log file for the
// TUI, which owns the terminal.
func loadConfig(logToStderr bool) (*config.Config, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverURL != "" {
		cfg.ServerURL = strings.TrimRight(serverURL, "/")
	}

	logger.Init(logger.Config{DataDir: cfg.Dir, Stderr: logToStderr})
	return cfg, nil
}

func newGateway(cfg *config.Config) *gateway.Client {
	return gateway.NewClient(cfg.ServerURL, cfg.Token, cfg.Timeout)
}

func newController(cfg *config.Config, notifier controller.Notifier) *controller.Controller {
	return controller.New(newGateway(cfg), notifier)
}
