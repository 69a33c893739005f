package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/alvarorichard/goanime-resolver/internal/config"
	"github.com/alvarorichard/goanime-resolver/internal/playback"
	"github.com/alvarorichard/goanime-resolver/internal/util"
	"github.com/alvarorichard/goanime-resolver/pkg/resolver"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var debugFlag bool

	ctx := &commandContext{configFlag: &configFlag, debugFlag: &debugFlag}

	rootCmd := &cobra.Command{
		Use:           "goanime-resolver",
		Short:         "Find a playable source for an anime episode",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newProvidersCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// ensureConfig loads the config once and sets up logging from it
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, v, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if *c.debugFlag {
			cfg.Debug = true
		}
		util.SetDebugMode(cfg.Debug)
		util.InitLogger()
		if used := v.ConfigFileUsed(); used != "" {
			util.Debugf("using config file %s", used)
		}
		util.Debug("configuration loaded", "addr", cfg.Server.Addr, "endpoint", cfg.Client.Endpoint, "cache", cfg.Slug.CachePath)
		c.config = cfg
	})
	return c.config, c.configErr
}

// newFetcher returns a remote fetcher when an endpoint is configured and an
// in-process client otherwise. release frees whatever was opened.
func (c *commandContext) newFetcher(endpoint string) (fetcher playback.Fetcher, release func() error, err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if endpoint == "" {
		endpoint = cfg.Client.Endpoint
	}
	if endpoint != "" {
		util.Debug("using remote resolution endpoint", "endpoint", endpoint)
		return playback.NewHTTPFetcher(endpoint), func() error { return nil }, nil
	}

	client, err := resolver.New(resolver.OptionsFromConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}
