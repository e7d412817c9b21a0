package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidsift/vidsift/internal/server"
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve feeds as a local JSON API",
		Long:  "Expose the aggregated feeds over HTTP for a browser frontend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			srv := server.New(a.agg, a.meter, a.store, a.logger,
				server.WithLibrary(a.store),
				server.WithTokenRefresher(a.refreshTokens),
			)

			addr := fmt.Sprintf("127.0.0.1:%d", port)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			return httpServer.ListenAndServe()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8787, "Port to listen on")

	return cmd
}
