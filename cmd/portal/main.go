package main

import (
	"os"

	"github.com/spf13/cobra"
)

const ServiceName = "portal"

var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "Yoga marketplace portal",
	Long: `Session and marketplace state for the yoga marketplace front end.

serve runs the HTTP surface and, when enabled, the realtime bridge.
search runs a single class search against the marketplace backend.
migrate prepares the Mongo collections for the mongo storage backend.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, searchCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
