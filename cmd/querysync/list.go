package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/querysync/cms"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

func addListFlags(cmd *cobra.Command, f *listFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.category, "category", "", "category filter (blogs, resources); \"All\" means none")
	flags.StringVar(&f.typ, "type", "", "post type for blogs: blog or news")
	flags.BoolVar(&f.all, "all", false, "jobs: include inactive vacancies")
	flags.Int64Var(&f.postID, "post-id", 0, "comments: approved comments of one post")
	flags.StringVar(&f.status, "status", "", "comments: moderation status filter")
	flags.StringVar(&f.slug, "slug", "", "blogs, initiatives: fetch one item by slug")
	flags.StringVar(&f.page, "page", "", "hero: page name (default home)")
}

func newListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:       "list <resource>",
		Short:     "Fetch a resource and print it as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: resourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup(a.api, args[0], f)
			if err != nil {
				return err
			}
			data, err := a.cache.GetOrFetch(cmd.Context(), t.key, t.fetch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	addListFlags(cmd, &f)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "delete <resource> <id>",
		Short:     "Delete an item; requires a login with the right role",
		Args:      cobra.ExactArgs(2),
		ValidArgs: cms.DeletableKinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			if err := a.api.Delete(cmd.Context(), args[0], id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %d\n", args[0], id)
			return err
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		f        listFlags
		interval time.Duration
		updates  int
	)
	cmd := &cobra.Command{
		Use:   "watch <resource>",
		Short: "Subscribe to a resource and print it whenever it changes",
		Long: "watch keeps a subscription open and invalidates it every --interval, " +
			"printing each new successful result. Failed refetches are logged and the " +
			"last good data is kept.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: resourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup(a.api, args[0], f)
			if err != nil {
				return err
			}
			return a.watch(cmd, t, interval, updates)
		},
	}
	addListFlags(cmd, &f)
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refetch interval")
	cmd.Flags().IntVar(&updates, "updates", 0, "exit after this many printed results (0 runs until interrupted)")
	return cmd
}

func (a *app) watch(cmd *cobra.Command, t target, interval time.Duration, updates int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	printed := make(chan struct{}, 1)
	var last uint64
	var count int
	listener := func(s query.Snapshot) {
		if s.Status == query.StatusError {
			a.logger.Warn(ctx, "refetch failed",
				observe.Field{Key: "key", Value: s.Key.String()},
				observe.Field{Key: "error", Value: s.Err},
			)
			return
		}
		if !s.HasData || s.Fetching || s.Stale || s.Version == last {
			return
		}
		last = s.Version
		_ = printJSON(out, s.Data)
		count++
		if updates > 0 && count >= updates {
			select {
			case printed <- struct{}{}:
			default:
			}
		}
	}

	sub, err := a.cache.Subscribe(ctx, t.key, t.fetch, listener)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-printed:
			return nil
		case <-ticker.C:
			a.cache.Invalidate(ctx, query.MatchExact(t.key))
		}
	}
}
