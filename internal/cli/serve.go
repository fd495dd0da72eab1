package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/GuildPay/app/controllers"
	"github.com/ManuelReschke/GuildPay/internal/pkg/archive"
	"github.com/ManuelReschke/GuildPay/internal/pkg/cache"
	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
	"github.com/ManuelReschke/GuildPay/internal/pkg/invoice"
	"github.com/ManuelReschke/GuildPay/internal/pkg/router"
	"github.com/ManuelReschke/GuildPay/internal/pkg/webhook"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var (
		withWorkers bool
		migrate     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (webhook, invoices, order status, admin)",
		Long: `Start the GuildPay HTTP server.

Examples:
  guildpay serve
  guildpay serve --migrate --with-workers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, runtimeOptions{cache: true, migrate: migrate})
			if err != nil {
				return err
			}
			defer rt.Close()
			warnUnsafeModes(rt.cfg)

			app, err := newApplication(ctx, rt)
			if err != nil {
				return err
			}

			if withWorkers {
				manager := newWorkerManager(rt, workerKinds{payouts: true, roles: true})
				manager.Start()
				defer manager.Stop()
			}

			addr := fmt.Sprintf("%s:%s", rt.cfg.App.Host, rt.cfg.App.Port)
			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info("[Server] Shutdown signal received")
			return app.ShutdownWithTimeout(shutdownTimeout)
		},
	}
	cmd.Flags().BoolVar(&withWorkers, "with-workers", false, "also run the payout and role workers in this process")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending SQL migrations before starting")
	return cmd
}

// newApplication wires the HTTP handlers onto a fiber app.
func newApplication(ctx context.Context, rt *runtime) (*fiber.App, error) {
	cfg := rt.cfg

	var archiver webhook.PayloadArchiver
	s3Archiver, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return nil, err
	}
	if s3Archiver != nil {
		archiver = s3Archiver
	}

	webhooks, err := webhook.NewService(rt.ledger, cfg.FeeBPS, archiver)
	if err != nil {
		return nil, err
	}

	handlers := &controllers.Handlers{
		Ledger: rt.ledger,
		Verifier: webhook.Verifier{
			Secret:    cfg.Webhook.Secret,
			Skip:      cfg.Webhook.SkipSignature,
			Tolerance: cfg.Webhook.Tolerance,
		},
		Webhooks: webhooks,
		Invoices: invoice.NewService(rt.ledger, invoice.NewCreator(cfg.Provider), cfg.App, cfg.Provider),
		Stats:    rt.stats,
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, rt.db)
		},
	}

	app := fiber.New(fiber.Config{
		AppName:   "GuildPay",
		BodyLimit: 1 << 20,
	})
	app.Use(recover.New(), logger.New())

	opts := router.Options{
		AdminKeyHash: cfg.Admin.APIKeyHash,
		DocsFile:     findDocsFile(),
	}
	if rt.redis != nil {
		opts.LimiterStorage = cache.NewLimiterStorage(cfg.Cache)
	}
	router.InstallRouter(app, handlers, opts)

	return app, nil
}

func findDocsFile() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/guildpay to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		file := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(file); err == nil {
			return file
		}
	}
	log.Warn("[Server] OpenAPI document not found, /docs/api/v1 disabled")
	return ""
}
