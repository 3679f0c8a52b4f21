// Command turnengine bootstraps the core turn-processing engine: it
// loads configuration from the environment, wires every collaborator,
// and runs the TurnWorkerPool until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/turnengine/internal/attachments"
	"github.com/haasonsaas/turnengine/internal/config"
	"github.com/haasonsaas/turnengine/internal/events"
	"github.com/haasonsaas/turnengine/internal/mcpclient"
	"github.com/haasonsaas/turnengine/internal/providers"
	"github.com/haasonsaas/turnengine/internal/sessions"
	"github.com/haasonsaas/turnengine/internal/tools"
	"github.com/haasonsaas/turnengine/internal/tools/files"
	"github.com/haasonsaas/turnengine/internal/turn"
	"github.com/haasonsaas/turnengine/internal/workerpool"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "turnengine",
		Short: "Runs the core turn-processing engine worker pool",
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the TurnWorkerPool and blocks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	sessionStore := sessions.NewStore()

	freshness := tools.NewFreshness()
	resolver := files.Resolver{Root: cfg.WorkspaceRoot}
	registry := tools.NewRegistry()
	registry.Register(files.NewReadTool(resolver, freshness))
	registry.Register(files.NewEditTool(resolver, freshness))
	registry.Register(files.NewWriteTool(resolver, freshness))
	registry.Register(files.NewPatchTool(resolver, freshness))

	ingestor := attachments.NewIngestor(
		cfg.AttachmentDownloadEnabled,
		cfg.AttachmentMaxBytes,
		cfg.AttachmentStorageDir,
		cfg.RequestTimeoutSeconds,
	)

	var mcpSource turn.MCPSource
	if cfg.MCPServerURL != "" {
		mcpSource = mcpclient.New(cfg.MCPServerURL, cfg.MCPServerToken, cfg.MCPRequestTimeoutSeconds)
	}

	providerAdapters := map[string]providers.Adapter{}
	if cfg.BridgeBaseURL != "" {
		bridge := providers.NewBridgeAdapter(cfg.DefaultProviderName, cfg.BridgeBaseURL, cfg.BridgeToken, cfg.BridgeTimeoutSeconds)
		providerAdapters[bridge.Name()] = bridge
	}

	sink := events.NewSink(cfg.GatewayBaseURL, cfg.GatewayInternalToken, cfg.RequestTimeoutSeconds)

	engine := &turn.Engine{
		Sessions:      sessionStore,
		WorkspaceRoot: cfg.WorkspaceRoot,
		Tools:         registry,
		Attachments:   ingestor,
		MCP:           mcpSource,
		Providers:     providerAdapters,
		Sink:          sink,
		MaxToolRounds: cfg.MaxToolRounds,
	}

	pool := workerpool.New(engine, sink, cfg.TurnWorkerCount, cfg.QueueDepth, logger)
	pool.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down, draining in-flight turns")
	pool.Stop()
	return nil
}
