package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/art"
	audithook "github.com/toastnco/prometheus/audit_hook"
	"github.com/toastnco/prometheus/discord"
	"github.com/toastnco/prometheus/nlu"
	"github.com/toastnco/prometheus/observability"
	"github.com/toastnco/prometheus/safety"
)

// version is set at build time.
var version = "dev"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and handle events until interrupted",
	RunE:  runBot,
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	for _, k := range cfg.UndecodedKeys() {
		logger.Warn("unknown config key", "key", k)
	}

	ctx, cancel := handleSignals(cmd.Context())
	defer cancel()

	meter, shutdownTelemetry, err := setupTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// Closed here until the bot starts and Stop takes ownership.
	storeOwned := true
	defer func() {
		if storeOwned {
			_ = s.Close()
		}
	}()

	hc, err := newHTTPClient(cfg)
	if err != nil {
		return err
	}

	wit, err := nlu.New(cfg.Tokens.Wit, nlu.WithHTTPClient(hc), nlu.WithLogger(logger))
	if err != nil {
		return err
	}

	compositor, err := art.New(art.WithHTTPClient(hc), art.WithLogger(logger))
	if err != nil {
		return err
	}

	session, err := discord.Open(cfg.Tokens.Discord)
	if err != nil {
		return err
	}

	opts := []prometheus.Option{
		prometheus.WithLogger(logger),
		prometheus.WithPrefix(cfg.Bot.Prefix),
		prometheus.WithCacheDir(cfg.CacheDir()),
		prometheus.WithClassifier(wit),
		prometheus.WithCompositor(compositor),
		prometheus.WithPlatform(discord.NewPlatform(session)),
		prometheus.WithPlugin(audithook.New(audithook.NewLogRecorder(logger), audithook.WithLogger(logger))),
	}

	if meter != nil {
		factory := observability.NewOTelFactory(meter, func(name string, err error) {
			logger.Warn("metric instrument not created", "name", name, "error", err)
		})
		opts = append(opts, prometheus.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	if cfg.Tokens.Google != "" {
		checker, err := safety.New(cfg.Tokens.Google,
			safety.WithHTTPClient(hc),
			safety.WithClientVersion(version),
			safety.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		opts = append(opts, prometheus.WithLinkChecker(checker))
	} else {
		logger.Warn("tokens.google is empty, links will not be checked")
	}

	bot := prometheus.New(s, opts...)
	if err := bot.Start(ctx); err != nil {
		return err
	}
	storeOwned = false
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := bot.Stop(stopCtx); err != nil {
			logger.Error("stop failed", "error", err)
		}
	}()

	adapter := discord.NewAdapter(bot,
		discord.WithLogger(logger),
		discord.WithBaseContext(ctx),
	)
	detach := adapter.Attach(session)
	defer detach()

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	defer func() { _ = session.Close() }()

	logger.Info("prometheus running", "version", version)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
