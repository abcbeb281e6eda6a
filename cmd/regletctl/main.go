// Command regletctl administers the capability-sandboxed WASM plugins a
// reglet host dispatches application events through: installing, granting
// capabilities, enabling/disabling, and inspecting the Plugin Store.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	internalcli "github.com/goagain/reglet-host/internal/cli"
	"github.com/goagain/reglet-host/internal/aiservice"
	"github.com/goagain/reglet-host/internal/config"
	"github.com/goagain/reglet-host/internal/hostapi"
	"github.com/goagain/reglet-host/internal/pluginregistry"
	"github.com/goagain/reglet-host/internal/postquery"
	"github.com/goagain/reglet-host/internal/sandbox"
	"github.com/goagain/reglet-host/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config error: %v\n", err)
		cfg = config.DefaultConfig()
	}
	cfg.ApplyEnvOverrides()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	reg, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := reg.LoadAllEnabled(ctx); err != nil {
		logger.Warn("some enabled plugins failed to load at startup", slog.Any("error", err))
	}

	root := internalcli.NewRootCommand(cfg, reg, logger)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// buildRegistry wires the Plugin Store, Sandbox Engine, and Host API Broker
// into a Registry, following spec.md §4's layering: Store is the system of
// record, Engine owns the shared wazero runtime, and the Host API Broker's
// imports are bound once per invocation from each Instantiate call.
func buildRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pluginregistry.Registry, error) {
	st, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening plugin store: %w", err)
	}

	brokers := hostapi.Brokers{
		Logger:      hostapi.NewLoggerBroker(logger, cfg.LogRateLimit),
		Metrics:     hostapi.NewMetricsBroker(prometheus.NewRegistry(), logger),
		AI:          hostapi.NewAiBroker(aiservice.Null{}, logger),
		Posts:       hostapi.NewPostsBroker(postquery.Null{}),
		Permissions: hostapi.PermissionsBroker{},
	}

	limits := sandbox.ResourceLimits{
		MemoryPages: cfg.Sandbox.MemoryPages,
		Fuel:        cfg.Sandbox.Fuel,
		StackDepth:  cfg.Sandbox.StackDepth,
	}
	engine, err := sandbox.NewEngine(ctx, limits, hostapi.NewHostImportBuilder(brokers))
	if err != nil {
		return nil, fmt.Errorf("constructing sandbox engine: %w", err)
	}

	for _, dir := range []string{cfg.InstallDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	return pluginregistry.New(pluginregistry.Config{
		InstallDir:          cfg.InstallDir,
		CacheDir:            cfg.CacheDir,
		MaxUncompressedSize: cfg.MaxArchiveBytes,
		MaxConcurrentLoads:  cfg.MaxConcurrentLoads,
	}, st, engine, logger), nil
}

// buildStore selects store.MemStore for local/dev hosts ("memory", the
// default) or an SQLStore backed by lib/pq against cfg.StoreDSN otherwise.
func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDSN == "memory" {
		return store.NewMemStore(), nil
	}

	db, err := sql.Open("postgres", cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return store.NewSQLStore(db), nil
}
