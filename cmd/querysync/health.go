package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querysync/health"
)

var errUnhealthy = errors.New("unhealthy")

func newHealthCmd(a *app) *cobra.Command {
	var slow time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agg := health.NewAggregator(health.AggregatorConfig{
				Timeout: 10 * time.Second,
				Logger:  a.logger,
			})
			agg.Register(health.NewBackendChecker(a.http, slow), health.NewCacheChecker(a.cache))

			rep := agg.Run(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), health.NewHealthResponse(rep)); err != nil {
				return err
			}
			if rep.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&slow, "slow", time.Second, "report degraded above this latency")
	return cmd
}
