package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pipewatch/internal/api"
	"pipewatch/internal/config"
	"pipewatch/internal/core"
	"pipewatch/internal/models"
	"pipewatch/internal/store"
	"pipewatch/pkg/log"
)

var ServeCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the poll scheduler and the control API",
	Long:    `Run the background poll scheduler and the localhost control API until interrupted.`,
	Example: `pipewatch serve --config /path/to/pipewatch.yaml`,
	Run:     run,
}

func run(cmd *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "serve").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wiring := core.NewWiring(cfg)
	stateStore := wiring.InitStore()
	syncEngine := wiring.InitEngine()
	sched := wiring.InitScheduler()

	// A settings write re-arms the timer with the new interval and
	// immediately reflects the change with a fresh cycle.
	stateStore.Subscribe(func(record store.Record, value any) {
		if record != store.RecordSettings {
			return
		}
		if settings, ok := value.(models.Settings); ok {
			sched.Reconfigure(settings.RefreshIntervalMs)
		}
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           api.NewServer(stateStore, syncEngine, sched, api.WithMiddlewares(api.LoggingMiddleware)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		_ = sched.Run(ctx)
	}()

	go func() {
		logger.Info().Str("listen_address", cfg.ListenAddress).Msg("Control API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Control API server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Control API shutdown failed")
	}
	<-schedulerDone
}
