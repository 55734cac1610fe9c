package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chathub",
	Short: "Real-time chat hub",
	Long: `chathub runs a WebSocket chat hub where every connection is a user.

Users get a generated name, see who else is online, broadcast messages and
follow join and leave notifications. A small compute service answers
fibonacci and factorial requests.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}
