package jobqueue

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

// Manager owns the worker schedulers of one process.
type Manager struct {
	schedulers []*Scheduler
	mu         sync.Mutex
	running    bool
}

func NewManager(schedulers ...*Scheduler) *Manager {
	return &Manager{schedulers: schedulers}
}

// PayoutScheduler wraps a payout processor in a scheduler using the worker interval.
func PayoutScheduler(p *PayoutProcessor, cfg config.Worker) *Scheduler {
	return NewScheduler("PayoutWorker", cfg.PayoutInterval, func(ctx context.Context) error {
		_, err := p.ProcessBatch(ctx)
		return err
	})
}

func RoleScheduler(p *RoleProcessor, cfg config.Worker) *Scheduler {
	return NewScheduler("RoleWorker", cfg.RoleInterval, func(ctx context.Context) error {
		_, err := p.ProcessBatch(ctx)
		return err
	})
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	log.Infof("[JobQueue Manager] Starting %d worker(s)", len(m.schedulers))
	for _, s := range m.schedulers {
		s.Start()
	}
	m.running = true
}

// Stop stops every scheduler and waits for in-flight ticks.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	log.Info("[JobQueue Manager] Stopping workers...")
	var wg sync.WaitGroup
	for _, s := range m.schedulers {
		wg.Add(1)
		go func(s *Scheduler) {
			defer wg.Done()
			s.Stop()
		}(s)
	}
	wg.Wait()
	m.running = false
	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunOnce runs one tick of every scheduler in order.
func (m *Manager) RunOnce(ctx context.Context) error {
	for _, s := range m.schedulers {
		if err := s.RunOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}
