package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"ticketscout/cmd/ticketscout-cli/globals"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/ratelimit"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/config"
	"ticketscout/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	debug       bool
	metricsAddr string
)

// cleanups run after the command, in reverse order
var cleanups []func()

var rootCmd = &cobra.Command{
	Use:           "ticketscout",
	Short:         "ticketscout searches ticket platforms and aggregates their events.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		value, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		cmd.SetContext(globals.Set(cmd.Context(), value))
		return nil
	},
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFile, "path to the config file (json5 or yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running, ex. :9090")
}

func setup(ctx context.Context) (*globals.Value, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	telemetry.InitSlog(debug || cfg.Debug)

	otel, err := telemetry.Setup(ctx, "ticketscout-cli", cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	cleanups = append(cleanups, func() {
		if err := otel.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown", "err", err.Error())
		}
	})

	if metricsAddr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		cleanups = append(cleanups, cancel)
		if _, err := serviceutil.StartHttpServer(serveCtx, metricsAddr, telemetry.MetricsHandler()); err != nil {
			return nil, fmt.Errorf("serve metrics: %w", err)
		}
	}

	clock := chrono.StandardImpl{}
	tel := telemetry.SlogAPI{}

	store := openCache(ctx, cfg.Redis, clock, tel)

	limiter := ratelimit.NewLimiter(store, clock, tel, cfg.RatePolicies())
	return &globals.Value{
		Config:  cfg,
		Limiter: limiter,
		Deps: adapter.Deps{
			Cache:   store,
			Limiter: limiter,
			Time:    clock,
			Tel:     tel,
		},
	}, nil
}

// openCache dials redis when configured. An unreachable redis is not fatal,
// the process falls back to its own memory store.
func openCache(ctx context.Context, cfg config.Redis, clock chrono.API, tel telemetry.API) kvstore.Store {
	if cfg.URL == "" {
		return kvstore.NewMemoryStore(clock)
	}
	client, err := kvstore.DialRedis(ctx, cfg.URL)
	if err != nil {
		tel.ReportWarning("redis-unavailable", err, "url", cfg.URL)
		return kvstore.NewMemoryStore(clock)
	}
	cleanups = append(cleanups, func() { client.Close() })
	return kvstore.NewRedisStore(client, cfg.Prefix)
}

// execute runs root and then every registered cleanup, whether or not the
// command failed.
func execute(ctx context.Context, root *cobra.Command) error {
	defer runCleanups()
	return root.ExecuteContext(ctx)
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx, rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
