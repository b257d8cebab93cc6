package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pipewatch/cmd/serve"
	"pipewatch/cmd/settings"
	syncCmd "pipewatch/cmd/sync"
	"pipewatch/cmd/version"
)

var cfgFile string

const (
	CFG_FLAG_NAME = "config"
)

var RootCmd = &cobra.Command{
	Use:   "pipewatch",
	Short: "Watch AWS CodePipeline state and act on pending approvals",
	Long: `Pipewatch polls AWS CodePipeline on a timer, keeps a local snapshot of
pipeline state, and exposes a localhost API for reading status, triggering
refreshes, and approving manual-approval gates.`,
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d, b string) {
	version.SetVersionInfo(v, c, d, b)
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, CFG_FLAG_NAME, "c", "", "path to config file")

	viper.BindPFlag(CFG_FLAG_NAME, RootCmd.PersistentFlags().Lookup(CFG_FLAG_NAME))
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
	})
	viper.SetConfigName("pipewatch")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("pipewatch")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/pipewatch/")
	viper.AddConfigPath("$HOME/.pipewatch")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(syncCmd.SyncCmd)
	RootCmd.AddCommand(settings.SettingsCmd)
	RootCmd.AddCommand(version.VersionCmd)
}
