package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"SpikeHunter/internal/config"
	"SpikeHunter/internal/engine"
	"SpikeHunter/internal/exchange"
	"SpikeHunter/internal/executor"
	"SpikeHunter/internal/notifier"
	"SpikeHunter/internal/recorder"
	"SpikeHunter/internal/scheduler"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("SpikeHunter starting...")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if !cfg.HasCredentials() {
		log.Warn().Msg("no API credentials configured; authenticated calls will fail (dry-run recommended)")
	}
	if !cfg.Trading.DryRun && !cfg.HasCredentials() {
		log.Fatal().Msg("live mode requires API credentials")
	}

	client := exchange.NewUpbitClient(
		cfg.Exchange.BaseURL,
		cfg.Exchange.AccessKey,
		cfg.Exchange.SecretKey,
		cfg.Exchange.RateCapacity,
		cfg.Exchange.RateRefill,
	)
	log.Info().Str("exchange", client.Name()).Bool("dry_run", cfg.Trading.DryRun).Msg("exchange client ready")

	exec := executor.New(client, cfg.Trading.DryRun, cfg.Trading.MinOrderNotional, cfg.Trading.QuoteAsset)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if !tn.Enabled() {
		log.Info().Msg("telegram notifier disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(cfg, client, exec, rec, tn)

	sched := scheduler.New(eng, tn, rec)
	if err := sched.Register(cfg.Schedule.StatusCron, cfg.Schedule.SummaryCron); err != nil {
		log.Fatal().Err(err).Msg("register cron jobs")
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	// Stop the engine loop on SIGINT/SIGTERM; Run executes the shutdown
	// safety net before returning.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("engine stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("SpikeHunter stopped")
}
