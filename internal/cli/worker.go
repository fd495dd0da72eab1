package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/GuildPay/internal/pkg/discord"
	"github.com/ManuelReschke/GuildPay/internal/pkg/jobqueue"
	"github.com/ManuelReschke/GuildPay/internal/pkg/payout"
)

type workerKinds struct {
	payouts bool
	roles   bool
}

func payoutWorkerCmd() *cobra.Command {
	return workerCommand("payout-worker", "Submit and track seller payouts", workerKinds{payouts: true})
}

func roleWorkerCmd() *cobra.Command {
	return workerCommand("role-worker", "Grant purchased Discord roles", workerKinds{roles: true})
}

func workerCmd() *cobra.Command {
	return workerCommand("worker", "Run the payout and role workers in one process", workerKinds{payouts: true, roles: true})
}

func workerCommand(use, short string, kinds workerKinds) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, runtimeOptions{cache: true})
			if err != nil {
				return err
			}
			defer rt.Close()
			warnUnsafeModes(rt.cfg)

			manager := newWorkerManager(rt, kinds)
			if once {
				return manager.RunOnce(ctx)
			}

			manager.Start()
			<-ctx.Done()
			log.Info("[JobQueue Manager] Shutdown signal received")
			manager.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single batch and exit")
	return cmd
}

func newWorkerManager(rt *runtime, kinds workerKinds) *jobqueue.Manager {
	cfg := rt.cfg
	retry := jobqueue.RetryPolicy{MaxAttempts: cfg.Worker.MaxAttempts}

	var schedulers []*jobqueue.Scheduler
	if kinds.payouts {
		p := jobqueue.NewPayoutProcessor(
			rt.ledger.Repos().Payout,
			payout.NewProvider(cfg.Provider, cfg.Payload, cfg.Worker.RequestTimeout),
			rt.notifier, rt.lease, rt.stats,
			jobqueue.PayoutOptions{
				BatchSize:      cfg.Worker.BatchSize,
				RequestTimeout: cfg.Worker.RequestTimeout,
				Retry:          retry,
				FailFast:       cfg.Worker.PayoutFailFast,
				TrackSent:      cfg.Worker.TrackSent,
			},
		)
		schedulers = append(schedulers, jobqueue.PayoutScheduler(p, cfg.Worker))
	}
	if kinds.roles {
		r := jobqueue.NewRoleProcessor(
			rt.ledger.Repos().RoleGrant,
			discord.NewRoleGranter(cfg.Discord, cfg.Worker.RequestTimeout),
			rt.notifier, rt.lease, rt.stats,
			jobqueue.RoleOptions{
				BatchSize:      cfg.Worker.BatchSize,
				RequestTimeout: cfg.Worker.RequestTimeout,
				Retry:          retry,
			},
		)
		schedulers = append(schedulers, jobqueue.RoleScheduler(r, cfg.Worker))
	}
	return jobqueue.NewManager(schedulers...)
}
