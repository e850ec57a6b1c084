// Command teamsnap-mcp serves TeamSnap tools to an MCP host over
// stdio. Writes are disabled unless TEAMSNAP_READONLY=false.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/teamsnap-mcp/internal/auth"
	"github.com/alexjbarnes/teamsnap-mcp/internal/config"
	"github.com/alexjbarnes/teamsnap-mcp/internal/logging"
	"github.com/alexjbarnes/teamsnap-mcp/internal/mcpserver"
	"github.com/alexjbarnes/teamsnap-mcp/internal/teamsnap"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := tokenProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	client := teamsnap.NewClient(tokens, nil, logger)

	mode := teamsnap.ModeReadOnly
	if !cfg.ReadOnly {
		mode = teamsnap.ModeReadWrite
	}

	toolClient := teamsnap.NewToolClient(client, mode)

	server := mcp.NewServer(
		&mcp.Implementation{Name: "teamsnap-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(server, toolClient)

	logger.Info("starting MCP server",
		slog.String("mode", mode.String()),
		slog.Bool("token_override", cfg.AccessToken != ""))

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// tokenProvider picks the token source: the env-var override when set,
// otherwise the persisted credentials file behind the refresh-capable
// authorizer. With the file-backed source a watcher picks up tokens
// the auth CLI writes while this server is running.
func tokenProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (teamsnap.TokenProvider, error) {
	if cfg.AccessToken != "" {
		return teamsnap.StaticToken(cfg.AccessToken), nil
	}

	store := auth.NewFileStore(cfg.CredentialsFile)

	creds, err := store.Credentials()
	if err != nil {
		return nil, fmt.Errorf("no TEAMSNAP_ACCESS_TOKEN set and no usable credentials file: %w", err)
	}

	authorizer := auth.New(creds, store, cfg.Scope, logger)

	if cfg.WatchCredentials {
		watcher := auth.NewWatcher(authorizer, logger)

		go func() {
			if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("credentials watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	return authorizer, nil
}
