package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/querysync/apitest"
	"github.com/jonwraymond/querysync/health"
	"github.com/jonwraymond/querysync/observe"
)

func newServeDemoCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-demo",
		Short: "Serve an in-memory CMS API seeded with demo content",
		Long: "serve-demo runs the in-memory backend under /api with demo accounts:\n" +
			"  " + apitest.DemoAdminEmail + " / " + apitest.DemoAdminPassword + "\n" +
			"  " + apitest.DemoTechEmail + " / " + apitest.DemoTechPassword + "\n" +
			"  " + apitest.DemoUserEmail + " / " + apitest.DemoUserPassword,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveDemo(cmd.Context(), addr, a.logger, func(url string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "demo API listening on %s/api\n", url)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

// serveDemo serves the demo backend on addr until ctx is done. ready is
// called with the base URL once the listener is bound.
func serveDemo(ctx context.Context, addr string, logger observe.Logger, ready func(url string)) error {
	backend := apitest.New(apitest.WithLogger(logger))
	backend.SeedDemo()

	agg := health.NewAggregator(health.AggregatorConfig{Logger: logger})
	agg.Register(health.NewCheckerFunc("store", func(context.Context) health.Result {
		return health.Healthy("in-memory store").WithDetails(map[string]any{
			"users": len(backend.Records("users")),
			"blogs": len(backend.Records("blogs")),
		})
	}))

	r := chi.NewRouter()
	r.Handle("/api/*", backend.Handler())
	health.RegisterHandlers(r, agg)

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	ready("http://" + ln.Addr().String())
	logger.Info(ctx, "demo API started", observe.Field{Key: "addr", Value: ln.Addr().String()})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
