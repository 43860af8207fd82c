// Command redis-subscriber streams pub/sub messages from a Redis server
// to stdout, reconnecting and replaying subscriptions on failure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	redissub "github.com/raniellyferreira/redis-subscriber"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configPath  string
		addr        string
		channels    []string
		patterns    []string
		logLevel    string
		metricsAddr string
	)

	root := &cobra.Command{
		Use:   "redis-subscriber",
		Short: "Stream Redis pub/sub messages with automatic reconnection",
		Long: `redis-subscriber subscribes to Redis channels and patterns and prints
every message as it arrives. Lost connections are re-established with
backoff and all subscriptions are replayed, so the stream survives
server restarts.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultCLIConfig()
			if configPath != "" {
				loaded, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			// Flags override file values
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("channel") {
				cfg.Channels = channels
			}
			if flags.Changed("pattern") {
				cfg.Patterns = patterns
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}

			if len(cfg.Channels) == 0 && len(cfg.Patterns) == 0 {
				return fmt.Errorf("nothing to subscribe to: pass --channel or --pattern")
			}

			return runSubscriber(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&addr, "addr", "localhost:6379", "redis server address")
	flags.StringArrayVar(&channels, "channel", nil, "channel to subscribe to (repeatable)")
	flags.StringArrayVar(&patterns, "pattern", nil, "pattern to subscribe to (repeatable)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, error)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "expose prometheus metrics on this address")

	root.AddCommand(configCommand())
	return root
}

func configCommand() *cobra.Command {
	config := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file populated with defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := writeConfigTemplate(path, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing file")

	config.AddCommand(initCmd)
	return config
}

func runSubscriber(parent context.Context, cfg cliConfig) error {
	logger := newLogger(cfg.LogLevel)

	opts := []redissub.Option{
		redissub.WithLogger(&subscriberLogger{log: logger}),
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, redissub.WithConnectTimeout(cfg.ConnectTimeout))
	}
	if cfg.ReadTimeout > 0 {
		opts = append(opts, redissub.WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		opts = append(opts, redissub.WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.EventBuffer > 0 {
		opts = append(opts, redissub.WithEventBuffer(cfg.EventBuffer))
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, redissub.WithMetrics(newPromCollector()))
		serveMetrics(cfg.MetricsAddr, logger)
	}

	sub, err := redissub.New(cfg.Addr, opts...)
	if err != nil {
		return err
	}
	defer sub.Close()

	for _, channel := range cfg.Channels {
		if err := sub.Subscribe(channel); err != nil {
			return err
		}
	}
	for _, pattern := range cfg.Patterns {
		if err := sub.PSubscribe(pattern); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, err := sub.Listen(ctx)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("channels", len(cfg.Channels)).
		Int("patterns", len(cfg.Patterns)).
		Msg("streaming")

	for event := range events {
		switch e := event.(type) {
		case redissub.Message:
			fmt.Printf("%s\t%s\n", e.Channel, e.Payload)
		case redissub.PatternMessage:
			fmt.Printf("%s\t%s\t%s\n", e.Pattern, e.Channel, e.Payload)
		case redissub.Connected:
			logger.Info().Msg("connected")
		case redissub.Disconnected:
			logger.Info().Err(e.Cause).Msg("disconnected, reconnecting")
		case redissub.Subscribed:
			logger.Debug().Str("channel", e.Channel).Int64("count", e.Count).Msg("subscribed")
		case redissub.Unsubscribed:
			logger.Debug().Str("channel", e.Channel).Int64("count", e.Count).Msg("unsubscribed")
		case redissub.PatternSubscribed:
			logger.Debug().Str("pattern", e.Pattern).Int64("count", e.Count).Msg("pattern subscribed")
		case redissub.PatternUnsubscribed:
			logger.Debug().Str("pattern", e.Pattern).Int64("count", e.Count).Msg("pattern unsubscribed")
		case redissub.DecodeError:
			logger.Error().Err(e.Cause).Msg("decode error")
		}
	}

	logger.Info().Msg("stream closed, shutting down")
	return nil
}
