package cli

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/alerts"
	"github.com/ManuelReschke/GuildPay/internal/pkg/cache"
	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
	"github.com/ManuelReschke/GuildPay/internal/pkg/jobqueue"
)

// runtime is the set of process-wide resources shared by the commands.
type runtime struct {
	cfg    *config.Config
	db     *gorm.DB
	ledger repository.Ledger
	// redis is nil when the cache is unreachable.
	redis    *goredis.Client
	stats    jobqueue.Stats
	lease    jobqueue.Lease
	notifier alerts.Notifier
}

type runtimeOptions struct {
	cache   bool
	migrate bool
}

func loadConfig() (*config.Config, error) {
	env.SetupEnvFile()
	return config.Load()
}

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if opts.migrate {
		if err := database.MigrateUp(cfg.Database); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		db:       db,
		ledger:   repository.NewLedger(db),
		stats:    jobqueue.NewMemoryStats(),
		lease:    jobqueue.NoopLease{},
		notifier: alerts.New(cfg.Alerts),
	}

	if opts.cache {
		client, err := cache.NewClient(ctx, cfg.Cache)
		if err != nil {
			log.Warnf("[Cache] Continuing without cache: worker stats stay in memory, no row leases")
			_ = client.Close()
		} else {
			rt.redis = client
			rt.stats = jobqueue.NewRedisStats(client)
			if cfg.Cache.LeaseEnabled {
				rt.lease = jobqueue.NewRedisLease(client, 2*cfg.Worker.RequestTimeout)
			}
		}
	}
	return rt, nil
}

func (rt *runtime) Close() {
	if err := rt.notifier.Close(); err != nil {
		log.Warnf("[Alerts] Failed to close notifier: %v", err)
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			log.Warnf("[Cache] Failed to close client: %v", err)
		}
	}
	if err := database.Close(rt.db); err != nil {
		log.Warnf("[Database] Failed to close: %v", err)
	}
}

func warnUnsafeModes(cfg *config.Config) {
	if cfg.Webhook.SkipSignature {
		log.Warn("[Webhook] Signature verification is DISABLED (WEBHOOK_SKIP_SIGNATURE)")
	} else if cfg.Webhook.Secret == "" {
		log.Warn("[Webhook] No webhook secret configured, every delivery will be rejected")
	}
	if cfg.Provider.Mock {
		log.Warn("[Provider] Mock mode enabled, invoices and payouts are not sent to the provider")
	}
	if cfg.Discord.Mock {
		log.Warn("[Discord] Mock mode enabled, roles are not granted")
	}
}
