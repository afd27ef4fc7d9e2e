package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/leadboard/internal/config"
	"github.com/rpggio/leadboard/internal/crm"
	"github.com/rpggio/leadboard/internal/domain/activity"
	"github.com/rpggio/leadboard/internal/domain/calendar"
	"github.com/rpggio/leadboard/internal/domain/lead"
	"github.com/rpggio/leadboard/internal/domain/role"
	"github.com/rpggio/leadboard/internal/mcp"
	"github.com/rpggio/leadboard/internal/sqlite"
	"github.com/rpggio/leadboard/internal/transport"
)

const initialLoadTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	stateRepo := sqlite.NewStateRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	activitySvc := activity.NewService(activityRepo, logger)

	client := crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.Token,
		crm.WithTimeout(cfg.CRM.Timeout),
		crm.WithRateLimit(cfg.CRM.RateLimit),
		crm.WithVersion(cfg.CRM.Version),
	)
	store := lead.NewStore(client,
		lead.WithStages(cfg.Pipeline.Stages),
		lead.WithLogger(logger),
		lead.WithState(stateRepo),
		lead.WithActivity(activitySvc),
	)
	store.RestoreStatus(context.Background())

	services := mcp.Services{
		Pipeline: store,
		Roles:    role.NewService(stateRepo, activitySvc, logger),
		Calendar: calendar.NewService(stateRepo, logger),
		Activity: activitySvc,
	}

	if cfg.Pipeline.LoadOnStart {
		loadPipeline(logger, store)
	}

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		AuthEnabled:   cfg.Auth.Enabled,
		AuthToken:     cfg.Auth.Token,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	if cfg.Transport.Mode == config.TransportStdio {
		runStdioMode(logger, mcpServer)
		return
	}
	runHTTPMode(logger, cfg, mcp.NewHandler(services), mcpServer)
}

// loadPipeline performs the startup load. A failure is logged and the
// server starts with an empty board.
func loadPipeline(logger *slog.Logger, store *lead.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), initialLoadTimeout)
	defer cancel()
	if err := store.Load(ctx); err != nil {
		logger.Warn("initial pipeline load failed", "error", err)
		return
	}
	logger.Info("pipeline loaded", "leads", store.Metrics().TotalLeads)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func runHTTPMode(logger *slog.Logger, cfg config.Config, handler transport.RPCHandler, mcpServer *sdkmcp.Server) {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	opts := transport.Options{MCP: mcpHandler, Logger: logger}
	if cfg.Auth.Enabled {
		opts.Auth = transport.AuthMiddleware(cfg.Auth.Token)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           transport.NewServer(handler, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "auth", cfg.Auth.Enabled, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
