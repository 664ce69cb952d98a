package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/byviz/mcp-observability/internal/server"
)

// serverName is the identity announced to MCP clients.
const serverName = "mcp-observability"

// serveOptions collects the flags shared by every serve subcommand.
type serveOptions struct {
	debugMode         bool
	securityFiltering bool

	transport       string
	httpAddr        string
	sseEndpoint     string
	messageEndpoint string
	httpEndpoint    string
}

// charmLogger adapts charmbracelet/log to the server.Logger interface.
type charmLogger struct {
	logger *charmlog.Logger
}

func newLogger(debugMode bool) *charmLogger {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          serverName,
	})
	if debugMode {
		logger.SetLevel(charmlog.DebugLevel)
	}
	return &charmLogger{logger: logger}
}

func (l *charmLogger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }
func (l *charmLogger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *charmLogger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *charmLogger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

// newServeCmd creates the parent serve command. The actual backends are
// subcommands so each server exposes only one vendor's toolset.
func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an MCP observability server",
		Long: `Start an MCP server exposing observability tools via the
Model Context Protocol.

Each backend runs as its own server process:
  serve elasticsearch - Elasticsearch search, cluster and APM analysis tools
  serve datadog       - Datadog logs, spans, metrics and inventory tools

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

By default every outgoing request is checked against a read-only endpoint
allow-list. Set MCP_ENABLE_SECURITY_FILTERING=false or pass
--security-filtering=false to disable it (not recommended).`,
	}

	cmd.PersistentFlags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging (default: false)")
	cmd.PersistentFlags().BoolVar(&opts.securityFiltering, "security-filtering", true, "Enforce the read-only endpoint filter")

	cmd.PersistentFlags().StringVar(&opts.transport, "transport", "stdio", "Transport type: stdio, sse, or streamable-http")
	cmd.PersistentFlags().StringVar(&opts.httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.PersistentFlags().StringVar(&opts.sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.PersistentFlags().StringVar(&opts.messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.PersistentFlags().StringVar(&opts.httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	cmd.AddCommand(newServeElasticsearchCmd(opts))
	cmd.AddCommand(newServeDatadogCmd(opts))

	return cmd
}

// runServe contains the server logic shared by all backends. The register
// callback wires the backend's toolset into the MCP server.
func runServe(cmd *cobra.Command, opts *serveOptions,
	register func(*mcpserver.MCPServer, *server.ServerContext) error,
	logConfig func(logger server.Logger, sc *server.ServerContext)) error {

	logger := newLogger(opts.debugMode)

	// Graceful shutdown on SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	contextOpts := []server.ServerOption{
		server.WithDebugMode(opts.debugMode),
		server.WithLogger(logger),
	}
	// The flag only overrides the environment when explicitly set, so
	// MCP_ENABLE_SECURITY_FILTERING keeps working on its own.
	if cmd.Flags().Changed("security-filtering") {
		contextOpts = append(contextOpts, server.WithSecurityFiltering(opts.securityFiltering))
	}

	serverContext, err := server.NewServerContext(shutdownCtx, contextOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error during server context shutdown", "error", err)
		}
	}()

	logConfig(logger, serverContext)
	if serverContext.SecurityFilteringEnabled() {
		logger.Info("Read-only endpoint filtering enabled")
	} else {
		logger.Warn("Read-only endpoint filtering DISABLED")
	}

	mcpSrv := mcpserver.NewMCPServer(serverName, rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := register(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Info("Starting MCP server", "transport", opts.transport)

	switch opts.transport {
	case "stdio":
		return runStdioServer(mcpSrv, logger)
	case "sse":
		return runSSEServer(mcpSrv, opts, shutdownCtx, logger)
	case "streamable-http":
		return runStreamableHTTPServer(mcpSrv, opts, shutdownCtx, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", opts.transport)
	}
}

// runStdioServer runs the server with STDIO transport
func runStdioServer(mcpSrv *mcpserver.MCPServer, logger server.Logger) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("Server gracefully stopped")
	return nil
}

// runSSEServer runs the server with SSE transport
func runSSEServer(mcpSrv *mcpserver.MCPServer, opts *serveOptions, ctx context.Context, logger server.Logger) error {
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(opts.sseEndpoint),
		mcpserver.WithMessageEndpoint(opts.messageEndpoint),
	)

	logger.Info("SSE server starting",
		"addr", opts.httpAddr,
		"sse_endpoint", opts.sseEndpoint,
		"message_endpoint", opts.messageEndpoint)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := sseServer.Start(opts.httpAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping SSE server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down SSE server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("SSE server stopped with error: %w", err)
		}
		logger.Info("SSE server stopped normally")
	}

	logger.Info("SSE server gracefully stopped")
	return nil
}

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(mcpSrv *mcpserver.MCPServer, opts *serveOptions, ctx context.Context, logger server.Logger) error {
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(opts.httpEndpoint),
	)

	logger.Info("Streamable HTTP server starting",
		"addr", opts.httpAddr,
		"endpoint", opts.httpEndpoint)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(opts.httpAddr); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
