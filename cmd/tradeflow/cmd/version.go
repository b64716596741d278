package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the tradeflow CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tradeflow version %s\n", version)
		fmt.Println("A multi-agent paper-trading pipeline coordinator")
		fmt.Println("https://github.com/rustyeddy/tradeflow")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
