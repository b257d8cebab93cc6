// Package core wires the daemon's components together from loaded
// configuration.
package core

import (
	"github.com/rs/zerolog"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/config"
	"pipewatch/internal/models"
	"pipewatch/internal/scheduler"
	"pipewatch/internal/service/engine"
	"pipewatch/internal/store"
	"pipewatch/pkg/log"
)

type Wiring struct {
	config *config.Config
	logger zerolog.Logger

	store   *store.Store
	factory *awsclient.Factory
	engine  *engine.Engine
}

func NewWiring(cfg *config.Config) *Wiring {
	return &Wiring{
		config: cfg,
		logger: log.Logger.With().Str("component", "wiring").Logger(),
	}
}

func (w *Wiring) InitStore() *store.Store {
	if w.store == nil {
		w.store = store.New(w.config.StateFile)
	}
	return w.store
}

func (w *Wiring) InitEngine() *engine.Engine {
	if w.engine == nil {
		if w.factory == nil {
			w.factory = awsclient.NewFactory()
		}
		w.engine = engine.New(w.factory.Resolver(), w.factory, w.InitStore(), w.config.Concurrency)
	}
	return w.engine
}

// InitScheduler builds the scheduler seeded with the stored refresh
// interval. Settings changes after startup reach it through the store
// subscription wired by the serve command.
func (w *Wiring) InitScheduler() *scheduler.Scheduler {
	settings, err := w.InitStore().GetSettings()
	intervalMs := models.DefaultRefreshIntervalMs
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to load settings, scheduling with default interval")
	} else {
		intervalMs = settings.RefreshIntervalMs
	}
	return scheduler.New(w.InitEngine(), intervalMs)
}
