package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohortlens/insights-engine/pkg/audit"
	"github.com/cohortlens/insights-engine/pkg/config"
	"github.com/cohortlens/insights-engine/pkg/database"
	"github.com/cohortlens/insights-engine/pkg/handlers"
	"github.com/cohortlens/insights-engine/pkg/logging"
	"github.com/cohortlens/insights-engine/pkg/mcp"
	"github.com/cohortlens/insights-engine/pkg/middleware"
	"github.com/cohortlens/insights-engine/pkg/repositories"
	"github.com/cohortlens/insights-engine/pkg/services"
	"github.com/cohortlens/insights-engine/pkg/sql"
	"github.com/cohortlens/insights-engine/pkg/workerpool"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd(version string, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(version)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			logger, err := logging.NewLogger(level, cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("cohort", cfg.Denominators.Cohort),
		zap.Int("max_concurrent", cfg.Workers.MaxConcurrent),
		zap.Bool("audit_store", cfg.Database.Enabled),
		zap.Bool("mcp", cfg.MCP.Enabled),
	)

	var db *database.DB
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			return fmt.Errorf("connect audit store: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(logger); err != nil {
			return fmt.Errorf("migrate audit store: %w", err)
		}
		logger.Info("Audit store ready",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(cfg, db, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting insights-engine", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHandler wires services, routes and middleware. db may be nil when the
// audit store is disabled.
func newHandler(cfg *config.Config, db *database.DB, logger *zap.Logger) http.Handler {
	var (
		repo  repositories.SQLFixAuditRepository
		store handlers.Pinger
	)
	if db != nil {
		repo = repositories.NewSQLFixAuditRepository(db.Pool)
		store = db
	}

	auditor := audit.NewAuditor(logger)
	drillDown := services.NewDrillDownService(auditor, logger)
	sqlGuard := services.NewSQLGuardService(
		sql.NewDenominatorValidator(cfg.Denominators.ToOptions()),
		workerpool.New(workerpool.Config{MaxConcurrent: cfg.Workers.MaxConcurrent}, logger),
		auditor,
		repo,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, store, logger).RegisterRoutes(mux)
	handlers.NewDrillDownHandler(drillDown, logger).RegisterRoutes(mux)
	handlers.NewSQLGuardHandler(sqlGuard, logger).RegisterRoutes(mux)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(cfg.Version, mcp.Deps{
			DrillDown:  drillDown,
			SQLGuard:   sqlGuard,
			AuditStore: store,
		}, logger)
		handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	}

	return middleware.RequestLogger(logger)(mux)
}
