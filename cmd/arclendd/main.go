package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arclend/config"
	"arclend/observability/logging"
	"arclend/protocol"
	"arclend/rpc"
	"arclend/storage"
)

const jwtSecretEnv = "ARCLEND_JWT_SECRET"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup(logging.Options{
		Service:    "arclendd",
		Env:        cfg.Env,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	genesisPath := strings.TrimSpace(*genesisFlag)
	if genesisPath == "" {
		genesisPath = strings.TrimSpace(cfg.GenesisFile)
	}
	if genesisPath == "" {
		logger.Error("No genesis file configured")
		os.Exit(1)
	}
	genesis, err := config.LoadGenesis(genesisPath)
	if err != nil {
		logger.Error("Failed to load genesis", slog.Any("error", err))
		os.Exit(1)
	}
	roles, err := genesis.Roles()
	if err != nil {
		logger.Error("Failed to resolve genesis roles", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	journal, err := storage.NewJournal(db, logger)
	if err != nil {
		logger.Error("Failed to open event journal", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := protocol.NewLedger(protocol.Config{
		Roles:               roles,
		Logger:              logger,
		Sink:                journal,
		LiquidationBonusBps: cfg.LiquidationBonusBps,
		ReserveFactorBps:    cfg.ReserveFactorBps,
	})
	if err := genesis.Apply(ledger); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	secret := strings.TrimSpace(cfg.AdminJWTSecret)
	if fromEnv := strings.TrimSpace(os.Getenv(jwtSecretEnv)); fromEnv != "" {
		secret = fromEnv
	}
	if secret == "" {
		logger.Warn("No admin JWT secret configured, admin routes disabled")
	}

	server := rpc.NewServer(ledger, rpc.Options{
		JWTSecret:     []byte(secret),
		RatePerSecond: cfg.RateLimitPerSecond,
		Burst:         cfg.RateLimitBurst,
		Logger:        logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("address", cfg.ListenAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("Stopped", slog.Uint64("journaledEvents", journal.Len()))
}
