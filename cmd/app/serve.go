package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/adapters/greenapi"
	"whatsapp-telegram-bridge/internal/infra/adapters/partner"
	"whatsapp-telegram-bridge/internal/infra/api"
	"whatsapp-telegram-bridge/internal/infra/i18n"
	"whatsapp-telegram-bridge/internal/infra/metrics"
	red "whatsapp-telegram-bridge/internal/infra/redis"
	"whatsapp-telegram-bridge/internal/infra/sched"
	"whatsapp-telegram-bridge/internal/infra/worker"
	"whatsapp-telegram-bridge/internal/usecase"
)

func serveCmd() *cobra.Command {
	var poll, dryRun bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve both webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if poll && dryRun {
				return errors.New("--poll needs a real bot connection; drop --dry-run")
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a, poll, dryRun)
		},
	}
	cmd.Flags().BoolVar(&poll, "poll", false, "receive bot updates by long polling instead of the webhook")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log outbound Telegram messages instead of sending them")
	return cmd
}

func serve(parent context.Context, a *app, poll, dryRun bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Redis (optional) ----
	redisClient, err := openRedis(ctx, a)
	if err != nil {
		return err
	}
	var (
		locker  repository.Locker
		limiter repository.RateLimiter
		dedup   repository.Deduplicator
	)
	if redisClient != nil {
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
		dedup = red.NewDeduplicator(redisClient)
	}

	// ---- Store ----
	st, err := openStore(ctx, a, redisClient)
	if err != nil {
		return err
	}
	defer st.close()

	// ---- Adapters ----
	transport, realBot, err := botTransport(a, dryRun)
	if err != nil {
		return err
	}
	gateway := greenapi.NewClient(&a.cfg.GreenAPI, a.log)
	partnerClient := partner.NewClient(&a.cfg.GreenAPI, a.log)
	catalog, err := i18n.Default()
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	auth := api.NewWebhookAuth(a.cfg.Security.WebhookSecret, a.log)
	if !auth.Enabled() {
		a.log.Warn().Msg("security.webhook_secret not set; /webhook/whatsapp is unauthenticated")
	}

	// ---- Use cases ----
	bindings := usecase.NewBindingUseCase(st.accounts, st.tm, locker, a.log)
	prefs := usecase.NewPreferencesUseCase(st.accounts, a.log)
	router := usecase.NewDeliveryRouter(transport, a.cfg.Bot.SendTimeout, a.log)
	dispatcher := usecase.NewCommandDispatcher(usecase.CommandDeps{
		Bindings:   bindings,
		Prefs:      prefs,
		Gateway:    gateway,
		Partner:    partnerClient,
		Router:     router,
		Catalog:    catalog,
		Tokens:     auth,
		WebhookURL: a.cfg.WhatsAppWebhookURL(),
		Dev:        a.cfg.Runtime.Dev,
		Log:        a.log,
	})
	updates := usecase.NewUpdateUseCase(bindings, dispatcher, router, catalog, limiter, a.cfg.Limits.CommandsPerMinute, a.log)
	bridge := usecase.NewBridgeUseCase(bindings, usecase.NewTransformer(catalog), router, dedup, a.cfg.Limits.DedupTTL, a.log)

	// ---- Bot updates: webhook or polling ----
	if poll {
		if err := realBot.DeleteWebhook(ctx, false); err != nil {
			return fmt.Errorf("delete webhook before polling: %w", err)
		}
		pool := worker.NewPool(8, a.log)
		pool.Start(ctx)
		defer pool.Stop()
		go func() {
			err := realBot.StartPolling(ctx, pool, func(ctx context.Context, u model.BotUpdate) {
				res := updates.HandleUpdate(ctx, u)
				a.log.Debug().Str("status", res.Status).Msg("polled update handled")
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Msg("polling stopped")
			}
		}()
	} else if hook := a.cfg.TelegramWebhookURL(); hook != "" {
		if err := transport.SetWebhook(ctx, hook); err != nil {
			return fmt.Errorf("register telegram webhook: %w", err)
		}
		a.log.Info().Str("url", hook).Msg("telegram webhook registered")

		wd := sched.NewWebhookWatchdog(a.cfg.Watchdog.Interval, transport, hook, a.log)
		go func() { _ = wd.Run(ctx) }()
	} else {
		a.log.Warn().Msg("bot.webhook_url not set; telegram webhook left unchanged")
	}

	// ---- HTTP ----
	srv := api.NewServer(bridge, updates, auth, &a.cfg.Server, a.log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown requested")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	a.log.Info().Msg("stopped")
	return nil
}
