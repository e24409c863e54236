// Command governance-core runs the governance decision tracking service:
// an HTTP API that executes governance agents, records execution spans
// and persists decision events to RuVector.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/agents"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/config"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/decision"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/observability"
	"github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/ruvector"
	serverhttp "github.com/LLM-Dev-Ops/governance-dashboard-sub004/internal/server/http"
)

var version = "1.0.0"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "governance-core",
		Short:   "Governance decision tracking service",
		Long:    "governance-core executes governance agents behind an HTTP API, tracks every invocation as a hierarchical execution span and persists the resulting decision events.",
		Version: version,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var configFile string

	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to config file")
	flags.String("host", "0.0.0.0", "listen address")
	flags.Int("port", 8080, "listen port")
	flags.String("ruvector-url", "", "RuVector base URL (empty disables persistence)")
	flags.String("ruvector-api-key", "", "RuVector API key")
	flags.Int("ttl-days", 365, "decision event retention in days")
	flags.Bool("dry-run", false, "validate and log decision events without persisting")
	flags.String("observability-config", "", "path to observability config file")
	flags.Bool("debug", false, "enable debug mode")

	must(v.BindPFlag("server.host", flags.Lookup("host")))
	must(v.BindPFlag("server.port", flags.Lookup("port")))
	must(v.BindPFlag("server.debug", flags.Lookup("debug")))
	must(v.BindPFlag("ruvector.base_url", flags.Lookup("ruvector-url")))
	must(v.BindPFlag("ruvector.api_key", flags.Lookup("ruvector-api-key")))
	must(v.BindPFlag("ruvector.ttl_days", flags.Lookup("ttl-days")))
	must(v.BindPFlag("dry_run", flags.Lookup("dry-run")))
	must(v.BindPFlag("observability_config", flags.Lookup("observability-config")))

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	obsConfig, err := observability.LoadConfig(cfg.Observability)
	if err != nil {
		return fmt.Errorf("load observability config: %w", err)
	}
	obs, err := observability.New(obsConfig)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	var store *ruvector.Client
	if cfg.RuVector.BaseURL != "" {
		store = ruvector.NewClient(ruvector.Config{
			BaseURL: cfg.RuVector.BaseURL,
			APIKey:  cfg.RuVector.APIKey,
			Timeout: cfg.RuVector.Timeout,
			TTLDays: cfg.RuVector.TTLDays,
		}, obs)
		obs.Logger.Info("ruvector persistence configured",
			"base_url", cfg.RuVector.BaseURL,
			"api_key", observability.SanitizeAPIKey(cfg.RuVector.APIKey),
			"ttl_days", cfg.RuVector.TTLDays,
		)
	} else {
		obs.Logger.Warn("no ruvector base URL configured, decision events will not be persisted")
	}

	var persister decision.Persister
	if store != nil {
		persister = store
	}
	emitter := decision.NewEmitter(persister, obs, cfg.DryRun)

	registry, err := agents.NewRegistry(
		agents.NewUsageOversightAgent(emitter, obs),
		agents.NewChangeImpactAgent(emitter, obs),
		agents.NewGovernanceAuditAgent(emitter, obs),
	)
	if err != nil {
		return fmt.Errorf("build agent registry: %w", err)
	}

	server, err := serverhttp.NewServer(serverhttp.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		Debug:        cfg.Server.Debug,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, registry, store, obs)
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(obs.Metrics.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		obs.Logger.Info("shutting down", "timeout", shutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			obs.Logger.Error("http server shutdown failed", "error", err)
		}
		return obs.Shutdown(shutdownCtx)
	})

	obs.Logger.Info("governance-core started",
		"version", version,
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"persistence", store != nil,
		"dry_run", cfg.DryRun,
	)
	return group.Wait()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
