package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/config"
	"ut.ee/course-advisor/internal/logger"
)

var (
	log *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "advisor",
		Short: "Course recommendation assistant for the University of Tartu catalogue",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			log = logger.New(config.AppConfig.LogLevel, config.AppConfig.LogFile)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Embed a JSON Lines course export into the local SQLite index",
		RunE:  runIngest,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Chat with the advisor in the terminal",
		RunE:  runChat,
	}
)

func init() {
	ingestCmd.Flags().StringP("file", "f", "", "course export in JSON Lines format (required)")
	ingestCmd.Flags().String("facets-out", "", "write the derived facet enumerations to this YAML file")
	ingestCmd.Flags().Int("batch", 0, "courses per embedding request")
	ingestCmd.Flags().Float64("max-failure-ratio", 0.25, "abort without touching the index when more than this share of courses fail to embed (0 = only when all fail)")
	_ = ingestCmd.MarkFlagRequired("file")

	chatCmd.Flags().String("semester", "", "restrict to a semester (spring or autumn)")
	chatCmd.Flags().String("language", "", "restrict to a study language, e.g. English")
	chatCmd.Flags().String("level", "", "restrict to a study level, e.g. \"master's studies\"")
	chatCmd.Flags().Float64("credits-min", 0, "minimum EAP")
	chatCmd.Flags().Float64("credits-max", 0, "maximum EAP")
	chatCmd.Flags().Int("top-k", 0, "number of courses to retrieve")
	chatCmd.Flags().String("api-key", "", "completion API key (defaults to COMPLETION_API_KEY)")

	rootCmd.AddCommand(serveCmd, ingestCmd, chatCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
