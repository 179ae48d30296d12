package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/resolwatch/config"
	"github.com/alejandrodnm/resolwatch/internal/adapters/cache"
	"github.com/alejandrodnm/resolwatch/internal/adapters/notify"
	"github.com/alejandrodnm/resolwatch/internal/adapters/polymarket"
	"github.com/alejandrodnm/resolwatch/internal/adapters/storage"
	"github.com/alejandrodnm/resolwatch/internal/application/watcher"
	"github.com/alejandrodnm/resolwatch/internal/domain"
	"github.com/alejandrodnm/resolwatch/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one watch cycle and exit")
	follow := flag.String("follow", "", "follow a single market by condition_id until it resolves")
	history := flag.String("history", "", "print stored step transitions for a condition_id and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full table (default: compact 1-line)")
	odds := flag.String("odds", "", "odds format: price|percent|decimal|american|fractional (overrides config)")
	noStore := flag.Bool("no-store", false, "do not persist timelines")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to load config", "err", err, "path", *configPath)
			os.Exit(1)
		}
		slog.Warn("config file not found, using defaults", "path", *configPath)
		cfg = config.Default()
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *odds != "" {
		cfg.Display.OddsFormat = *odds
	}
	setupLogger(cfg.Log)

	slog.Info("resolwatch starting",
		"config", *configPath,
		"interval", cfg.PollInterval(),
		"once", *once,
		"follow", *follow,
		"cache", cfg.Cache.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := polymarket.NewClient(cfg.API.BaseURL,
		polymarket.WithRate(cfg.API.RatePerSec),
		polymarket.WithPaging(cfg.Watcher.PageSize, cfg.Watcher.MaxMarkets),
	)

	var store ports.TimelineStorage
	if !*noStore || *history != "" {
		s, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	notifier := notify.NewConsole(*table || cfg.Display.Table, domain.ParseOddsFormat(cfg.Display.OddsFormat))

	if *history != "" {
		runHistory(ctx, store, notifier, *history)
		return
	}

	var marketCache ports.MarketCache
	if cfg.Cache.Enabled {
		rc, err := cache.NewRedisMarketCache(ctx, cache.Config{
			Addr:       cfg.Cache.Addr,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			TLSEnabled: cfg.Cache.TLS,
			TTL:        cfg.CacheTTL(),
		})
		if err != nil {
			// sin cache se sigue funcionando contra la API
			slog.Warn("redis unavailable, running without cache", "err", err, "addr", cfg.Cache.Addr)
		} else {
			defer rc.Close()
			marketCache = rc
		}
	}

	w := watcher.New(watcher.Config{
		PollInterval: cfg.PollInterval(),
		Tick:         cfg.Tick(),
		Workers:      cfg.Watcher.Workers,
		Once:         *once,
	}, client, marketCache, store, notifier)

	if *follow != "" {
		runFollow(ctx, w, notifier, *follow)
		return
	}

	if err := w.Run(ctx); err != nil {
		slog.Error("watcher exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("resolwatch stopped cleanly")
}

func runFollow(ctx context.Context, w *watcher.Watcher, notifier *notify.Console, conditionID string) {
	report, err := w.Follow(ctx, conditionID, notifier.PrintTimeline)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Error("market not found", "condition_id", conditionID)
		} else {
			slog.Error("follow failed", "err", err, "condition_id", conditionID)
		}
		os.Exit(1)
	}
	slog.Info("follow finished",
		"condition_id", conditionID,
		"terminal", report.Timeline.IsTerminal(),
	)
}

func runHistory(ctx context.Context, store ports.TimelineStorage, notifier *notify.Console, conditionID string) {
	history, err := store.GetTransitions(ctx, conditionID)
	if err != nil {
		slog.Error("load history failed", "err", err, "condition_id", conditionID)
		os.Exit(1)
	}
	notifier.PrintTransitions(conditionID, history)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
