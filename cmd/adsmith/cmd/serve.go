package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adsmith-io/adsmith/internal/config"
	"github.com/adsmith-io/adsmith/internal/diagnostics"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/pipeline"
	"github.com/adsmith-io/adsmith/internal/web"
)

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
	serveFake   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Start the adsmith HTTP server.

The server exposes REST endpoints for starting, inspecting and
cancelling runs, a server-sent events feed of live run progress, and
system diagnostics. Browser clients follow runs in real time over the
SSE feed.

Examples:
  # Start with defaults (localhost:8640)
  adsmith serve

  # Bind to all interfaces on a custom port
  adsmith serve --host 0.0.0.0 --port 9000

  # Serve the scripted fake agents (demo without an agent service)
  adsmith serve --fake`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"host address to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"disable CORS headers")
	serveCmd.Flags().BoolVar(&serveFake, "fake", false,
		"use the built-in scripted agents instead of the agent service")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	logger := buildLogger(cfg)

	unary, streaming := buildTaskClients(cfg, logger, serveFake)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	bus := events.New(256)
	defer bus.Close()

	orch, err := pipeline.New(unary, streaming, st, bus, logger, orchestratorConfig(cfg))
	if err != nil {
		return err
	}

	webCfg := web.DefaultConfig()
	webCfg.Host = cfg.Server.Host
	webCfg.Port = cfg.Server.Port
	webCfg.CORSOrigins = cfg.Server.CORSOrigins
	webCfg.SSEHeartbeat = cfg.Server.Heartbeat()
	webCfg.EnableCORS = !serveNoCORS
	if cmd.Flags().Changed("host") {
		webCfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		webCfg.Port = servePort
	}

	collector := diagnostics.NewCollector(filepath.Dir(cfg.Storage.Path))

	server := web.New(webCfg, orch, st, bus, logger,
		web.WithVersion(appVersion),
		web.WithCollector(collector),
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("server started",
		"addr", server.Addr(),
		"agents", cfg.Agents.Mode,
		"store", cfg.Storage.Backend,
	)

	// Watch the config file so edits show up on the SSE feed without a
	// restart. Only possible when a concrete file was used.
	if cfg.Server.WatchConfig && loader.ConfigFile() != "" {
		watcher, werr := web.NewConfigWatcher(loader.ConfigFile(), bus, logger, nil)
		if werr != nil {
			logger.Warn("config watcher disabled", "error", werr)
		} else {
			defer watcher.Close()
			logger.Info("watching config", "path", loader.ConfigFile())
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down server...")

	// Stop accepting HTTP first, then drain in-flight runs so they
	// persist before the store closes.
	ctx, cancel := context.WithTimeout(context.Background(), webCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := orch.Shutdown(ctx); err != nil {
		logger.Warn("orchestrator shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
