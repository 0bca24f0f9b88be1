package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/billing"
	"github.com/BatmanBruc/sub-pay-bot/internal/config"
	"github.com/BatmanBruc/sub-pay-bot/internal/handlers"
	"github.com/BatmanBruc/sub-pay-bot/internal/httpapi"
	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/lava"
	"github.com/BatmanBruc/sub-pay-bot/internal/middleware"
	"github.com/BatmanBruc/sub-pay-bot/internal/notify"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/internal/reconcile"
	"github.com/BatmanBruc/sub-pay-bot/internal/subscription"
	"github.com/BatmanBruc/sub-pay-bot/store"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var skipMigrations bool

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the notifier and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := config.InitLogger(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	catalog, err := plans.LoadFile(cfg.PlansFile)
	if err != nil {
		return err
	}

	pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if !skipMigrations {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var links types.LinkStore
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	if err != nil {
		logger.Warn("redis unavailable, payment links will not be reused", "addr", cfg.RedisAddr, "error", err)
	} else {
		defer rdb.Close()
		links = store.NewRedisLinkStore(rdb, cfg.PaymentLinkTTL)
	}

	opts := []bot.Option{
		bot.WithHTTPClient(50*time.Second, &http.Client{Timeout: 2 * time.Minute}),
	}
	if cfg.BotMode == config.BotModeWebhook && cfg.BotWebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.BotWebhookSecret))
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	dispatcher := notify.NewDispatcher(
		notify.NewTelegramNotifier(b, cfg.NotifyTimeout, i18n.Parse(cfg.NotifyLang)),
		notify.Config{Workers: cfg.NotifyWorkers, QueueSize: cfg.NotifyQueue},
		logger,
	)
	dispatcher.Start()
	defer dispatcher.Stop()

	gateway := lava.NewClient(lava.Config{
		BaseURL:   cfg.LavaAPIURL,
		ShopID:    cfg.LavaShopID,
		SecretKey: cfg.LavaSecretKey,
		HostURL:   cfg.HostURL,
		Timeout:   cfg.LavaTimeout,
	}, logger)

	billingSvc := billing.NewService(pg, pg, links, gateway, catalog, billing.Config{
		Currency: cfg.Currency,
		LinkTTL:  cfg.PaymentLinkTTL,
	}, logger)
	subs := subscription.NewService(pg, pg)
	reconciler := reconcile.New(pg, catalog, dispatcher, logger)

	mw := middleware.NewMiddlewares(pg, subs, logger)
	h := handlers.NewHandlers(billingSvc, subs, catalog, mw.RequireSubscription, logger)
	mw.OnLocked(h.LockedReply)

	handlerChain := mw.EnsureUser(
		mw.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)
	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	apiCfg := httpapi.Config{
		WebhookKey:     cfg.LavaWebhookKey,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}
	if cfg.BotMode == config.BotModeWebhook {
		apiCfg.TelegramPath = config.TelegramWebhookPath
		apiCfg.TelegramHandler = b.WebhookHandler()
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(billingSvc, reconciler, apiCfg, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if err := startBot(ctx, b, cfg, logger); err != nil {
		cancel()
		shutdown(srv, logger)
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	if cfg.BotMode == config.BotModeWebhook {
		delCtx, delCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := b.DeleteWebhook(delCtx, &bot.DeleteWebhookParams{}); err != nil {
			logger.Warn("delete telegram webhook failed", "error", err)
		}
		delCancel()
	}
	shutdown(srv, logger)
	return nil
}

// startBot begins consuming updates in the background.
func startBot(ctx context.Context, b *bot.Bot, cfg config.Config, logger *slog.Logger) error {
	log := logger.With("component", "bot")
	if cfg.BotMode == config.BotModeWebhook {
		ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         cfg.TelegramWebhookURL(),
			SecretToken: cfg.BotWebhookSecret,
		})
		if err != nil {
			return fmt.Errorf("set telegram webhook: %w", err)
		}
		if !ok {
			return errors.New("set telegram webhook: rejected by telegram")
		}
		go b.StartWebhook(ctx)
		log.Info("bot started", "mode", cfg.BotMode, "url", cfg.TelegramWebhookURL())
		return nil
	}

	if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{}); err != nil {
		log.Warn("delete telegram webhook failed", "error", err)
	}
	go b.Start(ctx)
	log.Info("bot started", "mode", cfg.BotMode)
	return nil
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}
