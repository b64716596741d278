package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradeflow",
	Short: "A multi-agent paper-trading pipeline coordinator",
	Long: `Tradeflow coordinates cooperating trading agents through a
message router and a strict task lifecycle.

It provides tools for:
  - Routing typed messages between registered agents
  - Driving trade tasks through risk, execution, and reporting stages
  - Enforcing portfolio exposure limits with atomic mutations
  - Journaling message deliveries and task outcomes
  - Streaming pipeline events to dashboard subscribers

Complete documentation is available at https://github.com/rustyeddy/tradeflow`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
