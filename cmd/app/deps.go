package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/config"
	"whatsapp-telegram-bridge/internal/domain/ports/adapter"
	"whatsapp-telegram-bridge/internal/domain/ports/repository"
	"whatsapp-telegram-bridge/internal/infra/adapters/telegram"
	pg "whatsapp-telegram-bridge/internal/infra/db/postgres"
	"whatsapp-telegram-bridge/internal/infra/db/sqlite"
	"whatsapp-telegram-bridge/internal/infra/logging"
	red "whatsapp-telegram-bridge/internal/infra/redis"
	"whatsapp-telegram-bridge/internal/infra/security"
)

// app holds what every subcommand needs.
type app struct {
	cfg *config.Config
	log *zerolog.Logger
}

func loadApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgPath, devMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	return &app{cfg: cfg, log: logger}, nil
}

// store is the account persistence selected by database.driver.
type store struct {
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	close    func()
}

func openStore(ctx context.Context, a *app, cache red.RedisClient) (*store, error) {
	cipher, err := security.NewTokenCipher(a.cfg.Security.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	if a.cfg.Security.EncryptionKey == "" {
		a.log.Warn().Msg("security.encryption_key not set; instance tokens are stored in plaintext")
	}

	switch a.cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, a.cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		statsCtx, stopStats := context.WithCancel(ctx)
		go sqlite.ReportPoolStats(statsCtx, db, 15*time.Second, a.log)

		a.log.Info().Str("path", a.cfg.Database.URL).Msg("using sqlite store")
		return &store{
			accounts: sqlite.NewAccountRepo(db, cipher),
			tm:       sqlite.NewTxManager(db),
			close: func() {
				stopStats()
				_ = db.Close()
			},
		}, nil
	default:
		pool, err := pg.NewPgxPool(ctx, &a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		statsCtx, stopStats := context.WithCancel(ctx)
		go pg.ReportPoolStats(statsCtx, pool, 15*time.Second, a.log)

		var accounts repository.AccountRepository = pg.NewAccountRepo(pool, cipher)
		if cache != nil {
			accounts = pg.NewAccountRepoCacheDecorator(accounts, cache, a.cfg.Redis.TTL)
		}
		a.log.Info().Msg("using postgres store")
		return &store{
			accounts: accounts,
			tm:       pg.NewTxManager(pool),
			close: func() {
				stopStats()
				pool.Close()
			},
		}, nil
	}
}

// openRedis returns nil when redis.url is empty. Locking, rate limiting,
// dedup and caching are then disabled.
func openRedis(ctx context.Context, a *app) (red.RedisClient, error) {
	if a.cfg.Redis.URL == "" {
		a.log.Warn().Msg("redis.url not set; locks, rate limits and dedup disabled")
		return nil, nil
	}
	c, err := red.NewClient(ctx, &a.cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// botTransport returns the Telegram transport, or a logging no-op with dryRun.
func botTransport(a *app, dryRun bool) (adapter.BotTransport, *telegram.RealBotTransport, error) {
	if dryRun {
		a.log.Warn().Msg("dry run: outbound Telegram calls are only logged")
		return telegram.NewNoopBotTransport(a.log), nil, nil
	}
	t, err := telegram.NewRealBotTransport(&a.cfg.Bot, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("telegram: %w", err)
	}
	return t, t, nil
}
