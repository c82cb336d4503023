package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"gymflow/internal/logger"
	"gymflow/internal/payment"
)

// Scheduler drives the time-triggered sweeps. Only the payment retry sweep
// lives here today.
type Scheduler struct {
	scheduler gocron.Scheduler
	retries   *payment.RetryScheduler
}

func NewScheduler(retries *payment.RetryScheduler, sweepInterval time.Duration) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		scheduler: scheduler,
		retries:   retries,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(s.runRetrySweep),
		gocron.WithName("payment-retry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	logger.Info("Background job scheduler started")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	logger.Info("Stopping background job scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runRetrySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	processed, err := s.retries.Sweep(ctx)
	if err != nil {
		logger.Errorf("Payment retry sweep failed: %v", err)
		return
	}

	logger.Info("Payment retry sweep completed", "processed", processed)
}
