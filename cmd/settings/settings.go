package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pipewatch/internal/config"
	"pipewatch/internal/core"
	"pipewatch/internal/models"
	"pipewatch/pkg/log"
)

var (
	accessKeyID     string
	secretAccessKey string
	region          string
	roleArn         string
	pipelineFilter  string
	refreshInterval int
)

var SettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored operator settings",
	Long: `Manage the operator settings held in the state file. The secret access
key is encrypted before it is written.`,
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the stored settings",
	Example: `pipewatch settings set --access-key-id AKIA... --secret-access-key ... \
  --region ap-southeast-2 --pipeline-filter prod`,
	Run: runSet,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings with the secret redacted",
	Run:   runShow,
}

func init() {
	setCmd.Flags().StringVar(&accessKeyID, "access-key-id", "", "AWS access key ID")
	setCmd.Flags().StringVar(&secretAccessKey, "secret-access-key", "", "AWS secret access key")
	setCmd.Flags().StringVar(&region, "region", models.DefaultRegion, "AWS region")
	setCmd.Flags().StringVar(&roleArn, "role-arn", "", "optional role ARN to assume")
	setCmd.Flags().StringVar(&pipelineFilter, "pipeline-filter", "", "case-insensitive substring filter for pipeline names")
	setCmd.Flags().IntVar(&refreshInterval, "refresh-interval-ms", models.DefaultRefreshIntervalMs, "poll interval in milliseconds")
	setCmd.MarkFlagRequired("access-key-id")
	setCmd.MarkFlagRequired("secret-access-key")

	SettingsCmd.AddCommand(setCmd)
	SettingsCmd.AddCommand(showCmd)
}

func runSet(_ *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "settings-set").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		os.Exit(1)
	}

	stateStore := core.NewWiring(cfg).InitStore()
	settings := models.Settings{
		AccessKeyID:       accessKeyID,
		SecretAccessKey:   secretAccessKey,
		Region:            region,
		RoleArn:           roleArn,
		PipelineFilter:    pipelineFilter,
		RefreshIntervalMs: refreshInterval,
	}

	if err := stateStore.SaveSettings(settings); err != nil {
		logger.Error().Err(err).Msg("Failed to save settings")
		os.Exit(1)
	}
	logger.Info().Msg("Settings saved")
}

func runShow(_ *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "settings-show").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		os.Exit(1)
	}

	stateStore := core.NewWiring(cfg).InitStore()
	settings, err := stateStore.GetSettings()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load settings")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(settings.Redacted(), "", "  ")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode settings")
		os.Exit(1)
	}
	fmt.Println(string(out))
}
