package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/snowdesk-io/snowdesk/internal/action"
	"github.com/snowdesk-io/snowdesk/internal/config"
	"github.com/snowdesk-io/snowdesk/internal/form"
	"github.com/snowdesk-io/snowdesk/internal/incident"
	"github.com/snowdesk-io/snowdesk/internal/logring"
	"github.com/snowdesk-io/snowdesk/internal/server"
	"github.com/snowdesk-io/snowdesk/internal/snow"
)

func main() {
	configPath := flag.String("config", "snow_credentials.yml", "Path to the credential file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logRing := logring.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logring.NewHandler(jsonHandler, logRing))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger.Info("snowdeskd starting",
		"version", action.Version,
		"localmode", cfg.LocalMode,
		"instance", cfg.SnowInstance,
	)

	// Local incident ledger
	os.MkdirAll(cfg.Server.DataDir, 0o755)
	ledgerPath := filepath.Join(cfg.Server.DataDir, "incidents.db")
	ledger, err := incident.NewSQLiteStore(ledgerPath)
	if err != nil {
		logger.Error("failed to open incident ledger", "path", ledgerPath, "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	snowClient := snow.NewClient(cfg.SnowUser, cfg.SnowPassword, cfg.SnowInstance)

	reg := action.NewRegistry()
	reg.Register(&action.SessionStart{Config: cfg, Logger: logger.With("action", "session_start")})
	reg.Register(&form.OpenIncident{
		Config: cfg,
		Snow:   snowClient,
		Ledger: ledger,
		Logger: logger.With("action", form.FormName),
	})
	reg.Register(&action.VersionReport{RasaXURL: cfg.RasaXURL, Logger: logger.With("action", "version")})
	reg.Register(&action.Restart{})
	reg.Register(&action.ResetSlots{Config: cfg, Logger: logger.With("action", "reset_slots")})
	reg.Register(&action.ShowSlots{})
	reg.Register(action.NewIntentReport(logger.With("action", "f1_score")))

	logger.Info("actions registered", "actions", reg.List())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(reg, server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, logger.With("component", "server"), ledger, logRing)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("snowdeskd stopped")
}
