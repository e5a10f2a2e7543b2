package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/wikigraph/app"
	"github.com/jonwraymond/wikigraph/graph"
)

type exploration struct {
	Nodes []graph.Node `json:"nodes" yaml:"nodes"`
	Edges []graph.Edge `json:"edges" yaml:"edges"`
}

func (c *cli) exploreCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "explore <page>...",
		Short: "Grow a graph from root pages by expanding links to a depth",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := graph.NewSession(a.Service, graph.NewMemoryRenderer(),
					graph.WithLogger(a.Logger),
					graph.WithWikiURL(a.Config.Wiki.URL),
				)
				if err := explore(ctx, s, args, depth); err != nil {
					return err
				}
				return c.print(exploration{Nodes: s.Nodes(), Edges: s.Edges()})
			})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "Link levels to expand below the roots")
	return cmd
}

// explore starts s at roots and expands every page node level by level
// until depth levels below the roots are materialized. Tag nodes are
// attached but not expanded.
func explore(ctx context.Context, s *graph.Session, roots []string, depth int) error {
	if err := s.Start(ctx, roots...).Wait(ctx); err != nil {
		return err
	}
	for level := 0; level < depth; level++ {
		var tasks []*graph.Task
		for _, n := range s.Nodes() {
			if n.Level == level && n.Kind.IsDocument() && !n.Expanded {
				tasks = append(tasks, s.Expand(ctx, n.ID))
			}
		}
		for _, t := range tasks {
			if err := t.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return s.Settle(ctx)
}
