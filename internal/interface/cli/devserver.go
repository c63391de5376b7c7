package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/cfchat/internal/devserver"
	"github.com/neilberkman/cfchat/internal/logger"
)

var (
	devAddr       string
	devDB         string
	devToken      string
	devResponder  string
	bedrockModel  string
	bedrockRegion string
	awsProfile    string
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local chat backend for development",
	Long: `Run a local chat backend backed by SQLite. By default replies echo the
message back, which is enough to exercise every client command without an
LLM. Use --responder bedrock to answer with a model on AWS Bedrock.

Examples:
  cfchat devserver
  cfchat devserver --addr :9000 --token secret
  cfchat devserver --responder bedrock --aws-profile dev
  cfchat --server http://localhost:9000 list`,
	RunE: runDevserver,
}

func init() {
	rootCmd.AddCommand(devserverCmd)
	devserverCmd.Flags().StringVar(&devAddr, "addr", "localhost:8000", "Listen address")
	devserverCmd.Flags().StringVar(&devDB, "db", "", "Database path (default: devserver.db in the config directory)")
	devserverCmd.Flags().StringVar(&devToken, "token", "", "Require this bearer token on every request")
	devserverCmd.Flags().StringVar(&devResponder, "responder", "echo", "Reply generator: echo or bedrock")
	devserverCmd.Flags().StringVar(&bedrockModel, "bedrock-model", "", "Bedrock model ID (default: Claude 3 Haiku)")
	devserverCmd.Flags().StringVar(&bedrockRegion, "bedrock-region", "", "AWS region for Bedrock (default: us-east-1)")
	devserverCmd.Flags().StringVar(&awsProfile, "aws-profile", "", "AWS shared config profile")
}

func newResponder(ctx context.Context) (devserver.Responder, error) {
	switch devResponder {
	case "", "echo":
		return devserver.EchoResponder{}, nil
	case "bedrock":
		return devserver.NewBedrockResponder(ctx, devserver.BedrockConfig{
			Region:  bedrockRegion,
			ModelID: bedrockModel,
			Profile: awsProfile,
		})
	default:
		return nil, fmt.Errorf("unknown responder %q (use echo or bedrock)", devResponder)
	}
}

func runDevserver(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Config{Stderr: true})

	responder, err := newResponder(cmd.Context())
	if err != nil {
		return err
	}

	dbPath := devDB
	if dbPath == "" {
		dbPath = filepath.Join(configDir, "devserver.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	database, err := devserver.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	srv := &http.Server{
		Addr:              devAddr,
		Handler:           devserver.New(database, responder, devToken),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dev server listening", "addr", devAddr, "db", dbPath, "responder", devResponder, "auth", devToken != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
