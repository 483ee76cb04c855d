package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "cryptodash",
	Short: "Crypto dashboard backend with a simulated portfolio balance",
	Long: `cryptodash serves the crypto dashboard: a simulated portfolio balance
that ticks on the selected time frame, a live coin list from the Binance
public API, and per-coin chat, over REST and WebSocket.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to YAML config file (optional)")
}
