// Package scheduler owns the poll cadence. A single goroutine consumes all
// trigger sources, so cycles never interleave and the store always holds one
// complete cycle's output.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/models"
	"pipewatch/pkg/log"
)

// MinInterval is the floor for the poll period regardless of configuration.
const MinInterval = time.Duration(models.MinRefreshIntervalMs) * time.Millisecond

// CycleRunner runs one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

type Scheduler struct {
	logger   zerolog.Logger
	runner   CycleRunner
	interval time.Duration
	manual   chan struct{}
	reload   chan time.Duration
}

func New(runner CycleRunner, intervalMs int) *Scheduler {
	return &Scheduler{
		logger:   log.Logger.With().Str("component", "scheduler").Logger(),
		runner:   runner,
		interval: ClampInterval(intervalMs),
		manual:   make(chan struct{}, 1),
		reload:   make(chan time.Duration, 1),
	}
}

// ClampInterval converts a configured interval to a duration no shorter than
// MinInterval. Non-positive values fall back to the default interval.
func ClampInterval(intervalMs int) time.Duration {
	if intervalMs <= 0 {
		intervalMs = models.DefaultRefreshIntervalMs
	}
	interval := time.Duration(intervalMs) * time.Millisecond
	if interval < MinInterval {
		return MinInterval
	}
	return interval
}

// TriggerNow requests an immediate cycle. Triggers are coalesced: while a
// cycle is running, any number of calls collapse into at most one pending
// trigger, which is discarded again once the running cycle completes.
func (s *Scheduler) TriggerNow() {
	select {
	case s.manual <- struct{}{}:
	default:
	}
}

// Reconfigure replaces the poll period. The pending value is overwritten
// rather than queued, so the loop always picks up the latest interval.
func (s *Scheduler) Reconfigure(intervalMs int) {
	interval := ClampInterval(intervalMs)
	for {
		select {
		case s.reload <- interval:
			return
		default:
			select {
			case <-s.reload:
			default:
			}
		}
	}
}

// Run executes cycles until the context is cancelled: once at startup, then
// on every tick, manual trigger, and reconfiguration.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Scheduler started")
	s.cycle(ctx)
	s.drain(ticker)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopped")
			return ctx.Err()

		case <-ticker.C:
			s.cycle(ctx)

		case <-s.manual:
			s.logger.Debug().Msg("Manual refresh triggered")
			s.cycle(ctx)

		case interval := <-s.reload:
			if interval != s.interval {
				s.interval = interval
				ticker.Reset(interval)
				s.logger.Info().Dur("interval", interval).Msg("Poll interval updated")
			}
			s.cycle(ctx)
		}

		s.drain(ticker)
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := s.runner.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, awsclient.ErrNotConfigured):
		// Not set up yet, the engine skipped without writing a snapshot.
	case errors.Is(err, context.Canceled):
	default:
		s.logger.Warn().Err(err).Msg("Poll cycle failed")
	}
}

// drain discards triggers that accumulated while a cycle was running so they
// coalesce into the completed cycle instead of starting another one.
func (s *Scheduler) drain(ticker *time.Ticker) {
	for {
		select {
		case <-s.manual:
		case <-ticker.C:
		default:
			return
		}
	}
}
