package cli

import (
	"os/signal"
	"syscall"

	"github.com/raphaelgruber/podcastrag/internal/httpapi"
	"github.com/spf13/cobra"
)

var (
	servePort    string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and chat socket",
	Long: `Serve question answering over HTTP.

Routes:
  POST /ask     answer one question
  GET  /ws      chat socket, keeps history per connection
  GET  /health  store connectivity
  GET  /stats   per-operation timings

Examples:
  podcastrag serve
  podcastrag serve --port 9000 --origin http://localhost:5173`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default: PODCASTRAG_SERVER_PORT or 8484)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil, "allowed chat socket origins (default: any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := getApp(ctx, true)
	if err != nil {
		return err
	}

	port := servePort
	if port == "" {
		port = cfg.ServerPort
	}

	api := httpapi.New(httpapi.Options{
		Pipeline:       a.Pipeline,
		Store:          a.Store,
		Metrics:        a.Metrics,
		Logger:         logger,
		AllowedOrigins: serveOrigins,
		AskTimeout:     cfg.AskTimeout,
	})
	return api.ListenAndServe(ctx, ":"+port)
}
