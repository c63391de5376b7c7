package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/core/export"
	"github.com/neilberkman/cfchat/internal/core/models"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to markdown, JSON or YAML",
	Long: `Export a session transcript.

By default exports to the current directory as session-<id>.<ext>.
Use --output to specify a custom path, or "-" for stdout. Markdown uses
the export template from the config directory when one is configured.

Examples:
  cfchat export 12
  cfchat export 12 --format json -o -
  cfchat export 12 -o ~/notes/segment-trees.md`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: session-<id>.<ext> in current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Output format: md, json or yaml")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	exporter, err := export.ForFormat(format, cfg.ExportTemplate)
	if err != nil {
		return err
	}

	id := models.SessionID(args[0])
	detail, err := newGateway(cfg).FetchSession(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	if exportOutput == "-" {
		return exporter(cmd.OutOrStdout(), detail)
	}

	outputPath := exportOutput
	if outputPath == "" {
		outputPath = fmt.Sprintf("session-%s.%s", id.Short(8), format.Ext())
	}
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		outputPath = filepath.Join(cwd, outputPath)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := exporter(f, detail); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported session to: %s\n", outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "  Messages: %d\n", len(detail.Messages))
	return nil
}
