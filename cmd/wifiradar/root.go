package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wifiradar",
	Short: "WiFi scanning intelligence toolkit",
	Long:  "wifiradar maintains a live world model of 802.11 emitters, classifies hidden networks, and exposes a threat event feed.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(replayCmd)
}
