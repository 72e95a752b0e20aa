package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/phantomx-ai/phantomx/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "phantomx",
	Short:         "PhantomX phone-call risk classifier",
	Long:          `PhantomX classifies phone calls as spam, business or safe from their transcript and voice.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "phantomx.yaml", "path to PhantomX config file")
	rootCmd.PersistentFlags().String("env-file", "", "path to .env file (default ./.env)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
