package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "aisearch",
	Short: "AI Search - cross-platform AI search backend",
	Long: `AI Search serves synthetic search results aggregated across several AI platforms,
simulated crawler health, and a live analytics feed over WebSocket and SSE.

Configuration is read from environment variables; a .env file is loaded when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return err
		} else if err != nil {
			log.Printf("No %s file loaded: %v", envFile, err)
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(crawlersCmd)
}
