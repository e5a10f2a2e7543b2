package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/wikigraph/api"
	"github.com/jonwraymond/wikigraph/app"
	"github.com/jonwraymond/wikigraph/auth"
	"github.com/jonwraymond/wikigraph/lookup"
	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
)

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and websocket exploration sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				srv := api.NewServer(a.Service, api.Options{
					ServiceName: a.Config.Observe.ServiceName,
					Logger:      a.Logger,
					Health:      a.Health,
					Gatherer:    a.Observer.Gatherer(),
					Auth:        a.Auth,
					Debug:       a.Config.Debug,
				})
				return srv.Serve(ctx, a.Config.Server.Addr, a.Config.Server.ShutdownTimeout)
			})
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default server.addr)")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// namespaceFlag registers --namespace. An unset flag means the base
// namespace; an explicit empty value means the whole corpus.
func namespaceFlag(cmd *cobra.Command) {
	cmd.Flags().String("namespace", "", "Namespace to scope to (default: the base namespace)")
}

func namespace(cmd *cobra.Command, svc *lookup.Service) string {
	if !cmd.Flags().Changed("namespace") {
		return svc.Options().BaseNamespace
	}
	ns, _ := cmd.Flags().GetString("namespace")
	return ns
}

func (c *cli) graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build the full page/tag graph of a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				g, err := a.Service.BuildGraph(ctx, namespace(cmd, a.Service))
				if err != nil {
					return err
				}
				return c.print(g)
			})
		},
	}
	namespaceFlag(cmd)
	return cmd
}

func (c *cli) pageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Look up a single page",
	}
	sub := func(use, short string, fn func(ctx context.Context, svc *lookup.Service, id string) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
					v, err := fn(ctx, a.Service, args[0])
					if err != nil {
						return err
					}
					return c.print(v)
				})
			},
		}
	}
	cmd.AddCommand(
		sub("title", "Print the page title", func(ctx context.Context, svc *lookup.Service, id string) (any, error) {
			title, err := svc.Title(ctx, id)
			return lookup.PageTitle{ID: pageid.Canonical(id), Title: title}, err
		}),
		sub("links", "Print the internal link targets", func(ctx context.Context, svc *lookup.Service, id string) (any, error) {
			return svc.Links(ctx, id)
		}),
		sub("tags", "Print the tags", func(ctx context.Context, svc *lookup.Service, id string) (any, error) {
			return svc.Tags(ctx, id)
		}),
		sub("info", "Print title, namespace and tags", func(ctx context.Context, svc *lookup.Service, id string) (any, error) {
			return svc.PageInfo(ctx, id)
		}),
		sub("preview", "Print a plain-text excerpt", func(ctx context.Context, svc *lookup.Service, id string) (any, error) {
			return svc.Preview(ctx, id)
		}),
	)
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				hits, err := a.Service.Search(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return c.print(hits)
			})
		},
	}
}

func (c *cli) tagPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tagpages <tag>",
		Short: "List the pages carrying a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Service.PagesByTag(ctx, args[0])
				if err != nil {
					return err
				}
				if res.Unindexed > 0 {
					a.Logger.Warn(ctx, "tag scan incomplete; run again or build the index",
						observe.F("unindexed", res.Unindexed))
				}
				return c.print(res)
			})
		},
	}
}

func (c *cli) allPagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allpages",
		Short: "List the pages of a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				pages, err := a.Service.AllPages(ctx, namespace(cmd, a.Service))
				if err != nil {
					return err
				}
				return c.print(pages)
			})
		},
	}
	namespaceFlag(cmd)
	return cmd
}

func (c *cli) namespacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespaces",
		Short: "List the namespaces below a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				ns, err := a.Service.Namespaces(ctx, namespace(cmd, a.Service))
				if err != nil {
					return err
				}
				return c.print(ns)
			})
		},
	}
	namespaceFlag(cmd)
	return cmd
}

func (c *cli) randomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "random",
		Short: "Pick a random page of the base namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p, err := a.Service.RandomPage(ctx)
				if err != nil {
					return err
				}
				return c.print(p)
			})
		},
	}
}

func (c *cli) indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build and print the tag index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				idx, err := a.Service.TagIndex(ctx)
				if err != nil {
					return err
				}
				return c.print(idx)
			})
		},
	}
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashkey <key>",
		Short: "Print the hash of an API key for auth.api_keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), auth.HashAPIKey(args[0]))
			return err
		},
	}
}
