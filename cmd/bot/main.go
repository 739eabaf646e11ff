package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CryptoSentinel/internal/api"
	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/collector"
	"CryptoSentinel/internal/config"
	"CryptoSentinel/internal/events"
	"CryptoSentinel/internal/ledger"
	"CryptoSentinel/internal/logging"
	"CryptoSentinel/internal/macro"
	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/notifier"
	"CryptoSentinel/internal/recorder"
	"CryptoSentinel/internal/scheduler"
	"CryptoSentinel/internal/strategy"
	"CryptoSentinel/internal/throttle"
	"CryptoSentinel/internal/tracker"

	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logging.New("info", false)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("mode", cfg.Scan.Mode).Strs("pairs", cfg.Scan.Pairs).Msg("CryptoSentinel starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data
	fetcher := collector.NewBinanceFetcher(cfg.Exchange.APIKey, cfg.Exchange.SecretKey, cfg.Exchange.BaseURL, cfg.Proxy, cfg.Timeout())
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	timeframes := make([]model.Timeframe, 0, len(cfg.Scan.Timeframes))
	for _, tf := range cfg.Scan.Timeframes {
		timeframes = append(timeframes, model.Timeframe(tf))
	}
	if !cfg.Scan.MultiTimeframe {
		timeframes = timeframes[:1]
	}
	col := collector.NewCollector(fetcher, timeframes, cfg.Scan.Limit, calculator.Options{
		BandWidth: cfg.Features.BBWidth,
		VWAP:      cfg.Features.VWAP,
	}, log)

	// Alert throttle
	var store throttle.Store
	if cfg.Redis.Addr != "" {
		rs, err := throttle.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("init redis throttle store")
		}
		defer rs.Close()
		store = rs
	} else {
		fs, err := throttle.NewFileStore(cfg.Storage.ThrottleFile)
		if err != nil {
			log.Fatal().Err(err).Msg("init throttle file")
		}
		store = fs
	}
	gate := throttle.NewGate(store, cfg.Cooldown(), log)

	tm, err := tracker.NewManager(cfg.Storage.SignalsFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init signal tracker")
	}
	lg, err := ledger.New(cfg.Storage.LedgerFile)
	if err != nil {
		log.Fatal().Err(err).Msg("init ledger")
	}

	// Statistics recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Signal events
	var pub events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	defer pub.Close()

	fomc, _ := cfg.FOMCDates()
	mc := macro.NewClient(macro.Options{
		FearGreedURL: cfg.Macro.FearGreedURL,
		CoinGeckoURL: cfg.Macro.CoinGeckoURL,
		FOMCDates:    fomc,
	}, log)

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)

	sched := scheduler.NewScheduler(ctx, cfg, scheduler.Deps{
		Fetcher:   fetcher,
		Collector: col,
		Engine:    strategy.NewEngine(timeframes, log),
		Gate:      gate,
		Tracker:   tm,
		Ledger:    lg,
		Macro:     mc,
		Sink:      tn,
		Recorder:  rec,
		Publisher: pub,
	}, log)

	if os.Getenv("RUN_ONCE") == "true" {
		log.Info().Msg("RUN_ONCE enabled, executing a single cycle")
		if err := sched.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("cycle failed")
			rec.Close()
			pub.Close()
			os.Exit(1)
		}
		return
	}

	if err := sched.Register(cfg.Scan.Cron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	// Status API
	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.SetupRoutes(api.NewHandler(tm, rec)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go serve(srv, log)
	}

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing scan now")
		go func() {
			if err := sched.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("initial cycle failed")
			}
		}()
	}

	log.Info().Msg("CryptoSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
	}
	log.Info().Msg("CryptoSentinel stopped")
}

func serve(srv *http.Server, log zerolog.Logger) {
	log.Info().Str("addr", srv.Addr).Msg("status API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("status API stopped")
	}
}
