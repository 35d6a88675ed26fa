package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	"launchpad/config"
	coreerrors "launchpad/core/errors"
	"launchpad/core/genesis"
	"launchpad/core/runtime"
	"launchpad/native/bootstrap"
	nativecommon "launchpad/native/common"
	"launchpad/observability/logging"
	telemetry "launchpad/observability/otel"
	"launchpad/services/launchapi"
	"launchpad/services/reconciler"
	"launchpad/storage"
)

const genesisPathEnv = "LAUNCHPAD_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis JSON file (overrides LAUNCHPAD_GENESIS and config GenesisFile)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag); err != nil {
		fmt.Fprintf(os.Stderr, "launchd: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, genesisFlag string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, closeLogs := logging.Setup(logging.Options{
		Service:    "launchd",
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "launchd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if cfg.Backend != config.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("prepare data dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.Backend, filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Backend, err)
	}
	defer db.Close()

	pauses := cfg.Pauses.Set()
	rt, err := runtime.New(runtime.Config{
		DB:     db,
		Pauses: nativecommon.StaticPauses(pauses),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}
	if len(pauses) > 0 {
		logger.Warn("modules paused by configuration", "modules", cfg.Pauses.Modules)
	}

	if err := applyGenesis(ctx, rt, resolveGenesisPath(genesisFlag, cfg.GenesisFile), logger); err != nil {
		return err
	}

	secret, err := cfg.HMACSecret()
	if err != nil {
		return fmt.Errorf("load api secret: %w", err)
	}
	auth, err := launchapi.NewAuthenticator(secret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.MaxSkew.Duration, logger)
	if err != nil {
		return err
	}
	api, err := launchapi.New(launchapi.Config{
		Ledger:            rt,
		Auth:              auth,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
		Burst:             cfg.API.Burst,
		MaxBodyBytes:      cfg.API.MaxBodyBytes,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	if cfg.Reconciler.Enabled {
		recDB, err := reconciler.Open(cfg.Reconciler.Driver, cfg.Reconciler.DSN)
		if err != nil {
			return err
		}
		rec, err := reconciler.New(reconciler.Config{
			DB:        recDB,
			Ledger:    rt,
			ExportDir: cfg.Reconciler.ExportDir,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		detach := rec.Attach()
		defer detach()
		go func() {
			if err := rec.Run(ctx, cfg.Reconciler.SnapshotInterval.Duration); err != nil {
				logger.Error("reconciler stopped", "error", err)
			}
		}()
		logger.Info("reconciler attached", "driver", cfg.Reconciler.Driver, "export_dir", cfg.Reconciler.ExportDir)
	}

	listener, err := listen(cfg.ListenAddress, cfg.API.MaxConnections)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: cfg.API.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.API.WriteTimeout.Duration,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "address", listener.Addr().String(), "backend", cfg.Backend, "max_connections", cfg.API.MaxConnections)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve api: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api: %w", err)
	}
	return nil
}

// listen binds addr and caps the number of connections served at once.
func listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

func resolveGenesisPath(flagValue, configValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env, ok := os.LookupEnv(genesisPathEnv); ok && strings.TrimSpace(env) != "" {
		return strings.TrimSpace(env)
	}
	return strings.TrimSpace(configValue)
}

// applyGenesis seeds an empty ledger. A ledger that already carries a sale
// is left untouched.
func applyGenesis(ctx context.Context, rt *runtime.Runtime, path string, logger *slog.Logger) error {
	initialized := true
	err := rt.View(ctx, func(e *runtime.Engines) error {
		_, err := e.Bootstrap.State()
		if coreerrors.Matches(err, bootstrap.ErrNotInitialized) {
			initialized = false
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("inspect ledger: %w", err)
	}
	if initialized {
		if path != "" {
			logger.Info("ledger already initialized; ignoring genesis file", "genesis", path)
		}
		return nil
	}
	if path == "" {
		logger.Warn("ledger is empty and no genesis file is configured")
		return nil
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	if err := rt.Do(ctx, "genesis.apply", func(e *runtime.Engines) error {
		return genesis.Apply(spec, e)
	}); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	logger.Info("genesis applied", "genesis", path)
	return nil
}
