package main

import (
	"context"
	"net/http"

	"github.com/cuemby/edo/internal/metrics"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve dependencies and run every transform in the project's build graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		errorOnLock, _ := cmd.Flags().GetBool("error-on-lock")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		c, err := buildCtx(cmd, errorOnLock)
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			server := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					c.Log.Warn().Err(err).Msg("metrics server exited")
				}
			}()
			defer server.Close()
		}

		return c.Run(context.Background())
	},
}

func init() {
	runCmd.Flags().Bool("error-on-lock", false, "Fail instead of re-resolving when the lockfile is out of date")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while the build runs (disabled by default)")
}
