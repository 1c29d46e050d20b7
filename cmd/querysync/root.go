package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/cms"
	"github.com/jonwraymond/querysync/config"
	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgPath string
	baseURL string
	verbose bool

	cfg     *config.Config
	obs     observe.Observer
	logger  observe.Logger
	session *auth.Session
	http    *fetch.Client
	cache   *query.Client
	api     *cms.API
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "querysync",
		Short:         "Query and manage CMS content through a deduplicating cache",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "config file (YAML, JSON or TOML)")
	flags.StringVar(&a.baseURL, "base-url", "", "API root, overrides api.base_url")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newListCmd(a),
		newDeleteCmd(a),
		newWatchCmd(a),
		newHealthCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newServeDemoCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(ctx, a.cfgPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.verbose {
		cfg.Observe.LogLevel = "debug"
	}
	a.cfg = cfg

	a.obs, err = observe.NewObserver(ctx, cfg.ObserveConfig())
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.logger = a.obs.Logger()
	mw, err := observe.MiddlewareFromObserver(a.obs)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	a.session = auth.NewSession(append(cfg.SessionOptions(), auth.WithLogger(a.logger))...)
	switch {
	case cfg.API.Token != "":
		if err := a.session.Login(ctx, cfg.API.Token); err != nil {
			return fmt.Errorf("api.token: %w", err)
		}
	default:
		err := a.session.Restore(ctx)
		if errors.Is(err, auth.ErrTokenExpired) {
			a.logger.Warn(ctx, "stored login expired; run querysync login")
		} else if err != nil {
			return err
		}
	}

	opts := append(cfg.FetchOptions(),
		fetch.WithHeaders(a.headers()),
		fetch.WithMiddleware(mw),
	)
	a.http, err = fetch.New(cfg.API.BaseURL, opts...)
	if err != nil {
		return err
	}

	a.cache = query.New(
		query.WithPolicy(cfg.QueryPolicy()),
		query.WithMiddleware(mw),
		query.WithLogger(a.logger),
	)
	a.api, err = cms.New(a.http, a.cache, cms.WithSession(a.session), cms.WithLogger(a.logger))
	return err
}

// headers merges configured static headers with the session's credentials.
func (a *app) headers() fetch.HeaderProvider {
	static := a.cfg.API.Headers
	return fetch.HeaderFunc(func(ctx context.Context) (map[string]string, error) {
		h, err := a.session.Headers(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(static)+len(h))
		for k, v := range static {
			out[k] = v
		}
		for k, v := range h {
			out[k] = v
		}
		return out, nil
	})
}

func (a *app) shutdown(ctx context.Context) error {
	if a.obs == nil {
		return nil
	}
	return a.obs.Shutdown(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
