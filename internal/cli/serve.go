package cli

import (
	"github.com/raine/estate-pricer/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis pipeline over HTTP",
		Example: `  # Start on the configured address (default :8080)
  estate-pricer serve

  # Analyze a listing
  curl -X POST localhost:8080/api/analyze -d '{"listingId":"4821337"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if err := ensureVisionCredential(cmd.OutOrStdout(), &cfg); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			handler, err := server.NewRouter(a.analyzer, a.searcher, server.Opts{
				ReportCacheSize: cfg.Server.ReportCacheSize,
				AllowedOrigins:  cfg.Server.AllowedOrigins,
				MaxPhotos:       cfg.Analyzer.MaxPhotos,
			})
			if err != nil {
				return err
			}
			return server.ListenAndServe(cmd.Context(), cfg.Server.Addr, handler, cfg.Analyzer.AnalysisTimeout)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config)")

	return cmd
}
