package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "samphubd",
	Short: "SAMP hub daemon",
	Long:  `samphubd runs a SAMP hub, serving the Standard Profile (lockfile + XML-RPC) and the Web Profile (single HTTP/JSON endpoint) against one shared registry.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func Execute() error {
	return rootCmd.Execute()
}
