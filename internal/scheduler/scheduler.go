package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/internal/lock"
	"github.com/varsla/varsla/internal/utils"
	"github.com/varsla/varsla/pkg/reminder"
	"github.com/varsla/varsla/pkg/tenant"
)

const lockName = "reminder-cycle"

// Scheduler drives the reminder pipeline on a fixed wall-clock interval. Each
// cycle runs under a cooperative lock so at most one instance evaluates
// reminders cluster-wide; a cycle that loses the lock race is skipped, not
// queued.
type Scheduler struct {
	tenants    tenant.Repository
	evaluator  *reminder.Evaluator
	dispatcher *reminder.Dispatcher
	locker     lock.Locker
	clock      utils.Clock
	interval   time.Duration
	lockTTL    time.Duration

	cron *cron.Cron
}

func New(
	tenants tenant.Repository,
	evaluator *reminder.Evaluator,
	dispatcher *reminder.Dispatcher,
	locker lock.Locker,
	clock utils.Clock,
	interval time.Duration,
	lockTTL time.Duration,
) *Scheduler {
	return &Scheduler{
		tenants:    tenants,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		locker:     locker,
		clock:      clock,
		interval:   interval,
		lockTTL:    lockTTL,
	}
}

// Start begins periodic execution until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.RunCycle(ctx); err != nil {
			log.Errorf("reminder cycle failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminder cycle: %w", err)
	}

	s.cron.Start()
	log.Infof("Scheduler started, reminder cycle every %s", s.interval)

	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
		log.Info("Scheduler stopped")
	}()
	return nil
}

// RunCycle executes one full evaluation pass over all tenants. A tenant
// failure is logged and does not abort the remaining tenants; losing the lock
// skips the whole cycle silently.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	if err := s.locker.TryAcquire(ctx, lockName, s.lockTTL); err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			log.Debug("reminder cycle lock held elsewhere, skipping cycle")
			return nil
		}
		return fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	defer func() {
		if err := s.locker.Release(ctx, lockName); err != nil {
			log.Errorf("failed to release cycle lock: %v", err)
		}
	}()

	tenantIds, err := s.tenants.ListIds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	for _, tenantId := range tenantIds {
		// Cooperative cancellation between tenants; a full cycle can be long.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.runTenant(ctx, tenantId); err != nil {
			log.Errorf("reminder cycle failed for tenant %d: %v", tenantId, err)
		}
	}
	return nil
}

func (s *Scheduler) runTenant(ctx context.Context, tenantId int) error {
	now := s.clock.Now()

	items, err := s.evaluator.Evaluate(ctx, tenantId, now)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	log.Debugf("dispatching %d reminder(s) for tenant %d", len(items), tenantId)
	return s.dispatcher.Dispatch(ctx, tenantId, items, now)
}
