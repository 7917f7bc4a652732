package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "clearance",
	Short:         "Student clearance tracking server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, exportCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
