package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"budget/internal/auth"
	"budget/internal/chart"
	"budget/internal/config"
	apphttp "budget/internal/http"
	"budget/internal/log"
	"budget/internal/reporting"
	"budget/internal/services"
)

const (
	shutdownTimeout    = 30 * time.Second
	sessionPrunePeriod = time.Hour
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger := SetupLogger(cfg)

	grouping, err := reporting.ParseGrouping(cfg.MonthlyGrouping)
	if err != nil {
		return err
	}

	repo, err := InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}

	publisher, err := NewPublisher(context.Background(), cfg, logger)
	if err != nil {
		repo.Close()
		return err
	}

	ledger := services.NewLedgerService(repo, publisher, logger)
	authSvc := auth.NewService(repo, cfg.SessionTTL, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:         ledger,
		Reports:        reporting.NewService(repo, cfg.DefaultCurrencyID, grouping),
		Auth:           authSvc,
		Chart:          chart.NewRenderer(cfg.ChartPath, logger),
		DB:             repo,
		Logger:         logger,
		SecureCookies:  cfg.SecureCookies,
		LoginRateLimit: cfg.LoginRateLimit,
	})
	if err != nil {
		ledger.Close()
		return err
	}

	runCtx, stop := context.WithCancel(parent)
	defer stop()

	ctx, done := GracefulShutdown(runCtx, logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	go pruneSessions(ctx, authSvc, logger)

	logger.Info("Starting budget server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"grouping", grouping)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		stop()
		<-done
		ledger.Close()
		return err
	}

	WaitForShutdown(ctx, done)
	if err := ledger.Close(); err != nil {
		logger.Warn("Close failed", log.FieldError, err.Error())
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// pruneSessions deletes expired session rows until ctx ends.
func pruneSessions(ctx context.Context, svc *auth.Service, logger *log.Logger) {
	ticker := time.NewTicker(sessionPrunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := svc.PruneSessions(ctx)
			if err != nil {
				logger.Warn("Session prune failed", log.FieldError, err.Error())
				continue
			}
			if n > 0 {
				logger.Debug("Expired sessions removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
