package main

import (
	"os"

	"github.com/spf13/cobra"

	"media-classify/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "classify",
		Short:        "Name pictures and videos after their capture time and keep videos compact",
		SilenceUsage: true,
	}
	cmd.AddCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
