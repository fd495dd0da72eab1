package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// TickFunc is one unit of periodic work.
type TickFunc func(ctx context.Context) error

// Scheduler invokes a TickFunc at a fixed period. Ticks never overlap: the next
// one starts only after the previous returned.
type Scheduler struct {
	name     string
	interval time.Duration
	tick     TickFunc

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(name string, interval time.Duration, tick TickFunc) *Scheduler {
	return &Scheduler{name: name, interval: interval, tick: tick}
}

func (s *Scheduler) Name() string {
	return s.name
}

// RunOnce executes a single tick synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.tick(ctx)
}

// Start runs one tick immediately and then every interval until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCh = make(chan struct{})
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
	log.Infof("[%s] Started (interval: %s)", s.name, s.interval)
}

// Stop signals the loop and waits for the current tick to return. A tick in
// flight keeps its context until it finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.wg.Wait()
	cancel()
	log.Infof("[%s] Stopped", s.name)
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runTick(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if err := s.tick(ctx); err != nil {
		log.Errorf("[%s] Tick failed: %v", s.name, err)
	}
}
