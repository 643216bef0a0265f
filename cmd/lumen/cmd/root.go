package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Lumen is a personal journaling server",
	Long: `A password-protected journaling server. Moments are short entries with
tags, status and media, persisted in a Notion database or a local store.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
