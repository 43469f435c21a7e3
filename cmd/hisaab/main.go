package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hisaab/internal/agent"
	"hisaab/internal/backend"
	"hisaab/internal/cache"
	"hisaab/internal/cli"
	"hisaab/internal/config"
	apphttp "hisaab/internal/http"
	"hisaab/internal/log"
	"hisaab/internal/ratelimit"
	"hisaab/internal/telegram"
)

const (
	shutdownTimeout  = 30 * time.Second
	userCacheSize    = 10000
	cacheSweepPeriod = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.LoadAndValidateConfig(logger, cfg)

	logger.Info("Starting hisaab bot",
		"backend", cfg.DataBackend,
		"model", cfg.OpenAIModel,
		"amqp_enabled", cfg.AMQPURL != "")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog())
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("Failed to connect to Telegram", log.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Authorized on Telegram", "username", api.Self.UserName)

	financeAgent := agent.New(
		agent.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		res.Store,
		agent.Config{Model: cfg.OpenAIModel, MaxTurns: cfg.AgentMaxTurns},
		logger.WithComponent(log.ComponentAgent).Slog(),
	)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.MessagesPerMinute})

	var userCache cache.Cache[string]
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	if cfg.UserCacheTTL > 0 {
		lru := cache.NewLRUCache[string](userCacheSize, cfg.UserCacheTTL)
		cacheManager.Register(lru)
		userCache = lru
	}

	bot := telegram.New(api, financeAgent, res.Store, telegram.Config{
		MaxConcurrent: cfg.MaxConcurrentMessages,
		Limiter:       limiter,
		UserCache:     userCache,
	}, logger.WithComponent(log.ComponentBot).Slog())

	var srv *apphttp.Server
	if cfg.HTTPPort != "" {
		srv = apphttp.NewServer(":"+cfg.HTTPPort, res.Store, logger)
		go func() {
			logger.Info("Starting ops server", "port", cfg.HTTPPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Ops server error", log.FieldError, err, "port", cfg.HTTPPort)
			}
		}()
	}

	botDone := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		<-botDone

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Ops server shutdown error", log.FieldError, err)
			}
		}

		limiter.Stop()
		cacheManager.Wait()

		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	})

	cacheManager.StartCleanup(ctx, cacheSweepPeriod)

	go func() {
		defer close(botDone)
		if err := bot.Run(ctx); err != nil {
			logger.Error("Bot stopped with error", log.FieldError, err)
		}
	}()

	logger.Info("Ready to receive messages")
	cli.WaitForShutdown(ctx, done)
	logger.Info("Bot stopped")
}
