package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/wikigraph/app"
	"github.com/jonwraymond/wikigraph/config"
	"github.com/jonwraymond/wikigraph/observe"
)

type cli struct {
	v       *viper.Viper
	cfgFile string
	format  string

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{v: config.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "wikigraph",
		Short:         "Explore a DokuWiki corpus as a graph of pages and tags",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.format != "json" && c.format != "yaml" {
				return fmt.Errorf("unknown --format %q (json, yaml)", c.format)
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "Config file path (yaml)")
	pf.String("fixture", "", "YAML corpus to serve instead of a live wiki")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&c.format, "format", "json", "Output format: json, yaml")
	_ = c.v.BindPFlag("wiki.fixture", pf.Lookup("fixture"))
	_ = c.v.BindPFlag("observe.log_level", pf.Lookup("log-level"))

	root.AddCommand(
		c.serveCmd(),
		c.graphCmd(),
		c.pageCmd(),
		c.searchCmd(),
		c.tagPagesCmd(),
		c.allPagesCmd(),
		c.namespacesCmd(),
		c.randomCmd(),
		c.indexCmd(),
		c.exploreCmd(),
		hashKeyCmd(),
	)

	return root
}

// load reads the config file, the environment and the bound flags.
func (c *cli) load() (*config.Config, error) {
	return config.Read(c.v, c.cfgFile)
}

// withApp builds the process for one command and tears it down after.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Build(ctx, cfg, app.WithLogOutput(c.stderr))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil {
			a.Logger.Warn(ctx, "shutdown incomplete", observe.F("error", cerr.Error()))
		}
	}()
	return fn(ctx, a)
}

// print writes v to stdout in the selected format.
func (c *cli) print(v any) error {
	if c.format == "yaml" {
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
