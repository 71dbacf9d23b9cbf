// Package cli provides the command-line interface for podcastrag.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/podcastrag/internal/app"
	"github.com/raphaelgruber/podcastrag/internal/client"
	"github.com/raphaelgruber/podcastrag/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose    bool
	serverURL  string
	jsonOutput bool

	// Global config and logger
	cfg           config.Config
	logger        *slog.Logger
	loggerCleanup func() error

	// Lazy-initialized application
	application *app.App
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "podcastrag",
	Short: "Ask questions about a podcast, answered from its knowledge graph",
	Long: `Podcastrag answers questions about a podcast from transcript segments
stored in a SurrealDB knowledge graph.

Segments are found by keyword, graph neighbourhood and embedding similarity,
packed into a token-bounded context and answered by the configured language
model with a list of cited episodes.

Commands run in-process by default. With --server they talk to a running
"podcastrag serve" instead.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Keep answers readable: one-shot commands only log warnings.
		level := cfg.LogLevel
		switch {
		case verbose:
			level = slog.LevelDebug
		case cmd.Name() != "serve" && level < slog.LevelWarn:
			level = slog.LevelWarn
		}
		logger, loggerCleanup = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close: %v\n", err)
			}
		}
		if loggerCleanup != nil {
			_ = loggerCleanup()
		}
	},
}

// getApp builds the application on first use. Commands that only retrieve
// pass withLLM=false so no model credentials are needed.
func getApp(ctx context.Context, withLLM bool) (*app.App, error) {
	if application != nil && (application.Pipeline != nil || !withLLM) {
		return application, nil
	}
	if application != nil {
		_ = application.Close(ctx)
		application = nil
	}

	a, err := app.New(ctx, cfg, logger, app.Options{WithoutLLM: !withLLM})
	if err != nil {
		return nil, err
	}
	application = a
	return a, nil
}

// remote returns a client when --server is set.
func remote() *client.Client {
	if serverURL == "" {
		return nil
	}
	return client.New(serverURL)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "podcastrag server URL (default: run in-process)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	// Add subcommands
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(communityCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
}
