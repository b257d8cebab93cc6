package sync

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/config"
	"pipewatch/internal/core"
	"pipewatch/pkg/log"
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run poll cycles against CodePipeline",
	Long:  `Run poll cycles against CodePipeline with various execution modes.`,
}

var onceCmd = &cobra.Command{
	Use:     "once",
	Short:   "Run one poll cycle and exit",
	Long:    `Perform a single poll cycle, persist the snapshot, and exit.`,
	Example: `pipewatch sync once --config /path/to/pipewatch.yaml`,
	Run:     runOnce,
}

func init() {
	SyncCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "sync-once").Logger()
	logger.Info().Msg("Starting one-time poll cycle")

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	wiring := core.NewWiring(cfg)
	syncEngine := wiring.InitEngine()

	err = syncEngine.RunCycle(cmd.Context())
	switch {
	case errors.Is(err, awsclient.ErrNotConfigured):
		logger.Warn().Msg("Credentials not configured, nothing to do")
	case err != nil:
		logger.Error().Err(err).Msg("Poll cycle failed")
		os.Exit(1)
	default:
		logger.Info().Msg("Poll cycle completed successfully")
	}
}
