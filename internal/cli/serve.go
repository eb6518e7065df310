package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hamzah/kharcha/internal/config"
	"github.com/hamzah/kharcha/internal/httpapi"
	"github.com/hamzah/kharcha/internal/logger"
	"github.com/hamzah/kharcha/internal/metrics"
	"github.com/hamzah/kharcha/internal/store"
	"github.com/hamzah/kharcha/pkg/agent"
	"github.com/hamzah/kharcha/pkg/authn"
	"github.com/hamzah/kharcha/pkg/expense"
	"github.com/hamzah/kharcha/pkg/pending"
	"github.com/hamzah/kharcha/pkg/session"
	"github.com/hamzah/kharcha/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kharcha API server",
	Long: `Run the kharcha HTTP API server.
The server exposes expense record endpoints and the conversational assistant,
and periodically prunes expired confirmation proposals.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer lg.Close()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	log.Info().Str("path", cfg.Database.Path).Msg("Database ready")

	m := metrics.New()
	expenses := expense.NewStore(db)
	auth := authn.NewStore(db)
	sessions := session.NewManager(db)
	proposals := pending.NewStore(db, time.Duration(cfg.Assistant.ConfirmTTLMinutes)*time.Minute)

	registry := tools.NewRegistry(m)
	if err := tools.RegisterAll(registry, db, expenses, proposals); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	provider, err := agent.NewProvider(cfg.AI.Provider, cfg.AI.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	runner, err := agent.NewRunner(agent.Config{
		Sessions: sessions,
		Registry: registry,
		Provider: provider,
		Metrics:  m,
		Logger:   lg.GetZerolog(),
		Options: agent.Options{
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			MaxTurns:    cfg.Assistant.MaxTurns,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	// Expired proposals are pruned on a schedule so a stale staged update or
	// delete cannot be confirmed days later.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Assistant.SweepSchedule, func() {
		swept, err := proposals.SweepExpired(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Proposal sweep failed")
			return
		}
		if swept > 0 {
			m.PendingActionsExpired.Add(float64(swept))
			log.Info().Int64("swept", swept).Msg("Expired proposals pruned")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Assistant.SweepSchedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	handler := httpapi.NewHandler(runner, expenses, auth, m, db)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", provider.Provider()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	stop()

	log.Info().Msg("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}
