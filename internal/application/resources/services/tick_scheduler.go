package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// TickSchedulerConfig controls tick cadence and accrual
type TickSchedulerConfig struct {
	Interval    time.Duration
	WoodPerTick int
	FoodPerTick int
}

// DefaultTickSchedulerConfig returns one tick a minute crediting 10 wood and 10 food
func DefaultTickSchedulerConfig() TickSchedulerConfig {
	return TickSchedulerConfig{
		Interval:    resources.DefaultTickInterval,
		WoodPerTick: resources.DefaultWoodPerTick,
		FoodPerTick: resources.DefaultFoodPerTick,
	}
}

// TickScheduler credits every user on a fixed period.
//
// Each firing takes one snapshot of the users and processes them
// independently: a failure for one user is logged to the audit log and
// never stops the others. A firing that comes due while the previous one is
// still running is skipped, and missed firings are never replayed.
type TickScheduler struct {
	ledger  resources.Ledger
	tickLog resources.TickLogRepository
	users   resources.UserDirectory
	clock   shared.Clock
	logger  *zap.Logger
	cfg     TickSchedulerConfig

	runMu sync.Mutex

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewTickScheduler creates a tick scheduler
func NewTickScheduler(
	ledger resources.Ledger,
	tickLog resources.TickLogRepository,
	users resources.UserDirectory,
	clock shared.Clock,
	logger *zap.Logger,
	cfg TickSchedulerConfig,
) *TickScheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = resources.DefaultTickInterval
	}
	return &TickScheduler{
		ledger:  ledger,
		tickLog: tickLog,
		users:   users,
		clock:   clock,
		logger:  logger.Named("tick"),
		cfg:     cfg,
	}
}

// Start fires RunOnce every interval until ctx is cancelled or Stop is called
func (s *TickScheduler) Start(ctx context.Context) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("tick scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("wood_per_tick", s.cfg.WoodPerTick),
		zap.Int("food_per_tick", s.cfg.FoodPerTick))
}

// Stop cancels the loop and waits for an in-flight tick to finish
func (s *TickScheduler) Stop() {
	s.lifecycleMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("tick scheduler stopped")
}

func (s *TickScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// fire runs one tick unless the previous one is still going
func (s *TickScheduler) fire(ctx context.Context) {
	if !s.runMu.TryLock() {
		s.logger.Warn("previous tick still running, skipping")
		return
	}
	defer s.runMu.Unlock()

	if _, err := s.run(ctx); err != nil {
		s.logger.Error("tick failed", zap.Error(err))
	}
}

// RunOnce performs one tick immediately, waiting for a running tick to finish first
func (s *TickScheduler) RunOnce(ctx context.Context) (*resources.TickSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	return s.run(ctx)
}

func (s *TickScheduler) run(ctx context.Context) (*resources.TickSummary, error) {
	start := time.Now()
	tickedAt := s.clock.Now()

	targets, err := s.users.ListTickTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot users for tick: %w", err)
	}

	summary := &resources.TickSummary{
		TickedAt: tickedAt,
		Total:    len(targets),
	}

	for _, target := range targets {
		if s.tickUser(ctx, target, tickedAt) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Duration = time.Since(start)

	metrics.RecordTick(*summary)

	if summary.Total == 0 {
		s.logger.Debug("no users to tick")
		return summary, nil
	}

	s.logger.Info("resource tick completed",
		zap.Time("ticked_at", summary.TickedAt),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("total", summary.Total),
		zap.Int("wood_per_tick", s.cfg.WoodPerTick),
		zap.Int("food_per_tick", s.cfg.FoodPerTick),
		zap.Duration("duration", summary.Duration))

	return summary, nil
}

// tickUser credits one user and writes exactly one audit entry.
// Returns whether the user was credited and the entry stored.
func (s *TickScheduler) tickUser(ctx context.Context, target resources.TickTarget, tickedAt time.Time) bool {
	log := s.logger.With(zap.String("user_id", target.UserID), zap.String("username", target.Username))
	amount := resources.Cost{Wood: s.cfg.WoodPerTick, Food: s.cfg.FoodPerTick}

	var entry *resources.TickLogEntry

	before, err := s.ledger.GetBalance(ctx, target.UserID)
	if err != nil {
		entry = resources.NewFailedTick(target.UserID, target.Username, nil,
			&resources.ErrTickFailure{UserID: target.UserID, Err: err}, tickedAt)
	} else if after, addErr := s.ledger.Add(ctx, target.UserID, amount); addErr != nil {
		entry = resources.NewFailedTick(target.UserID, target.Username, before,
			&resources.ErrTickFailure{UserID: target.UserID, Err: addErr}, tickedAt)
	} else {
		// The credit is already applied; a stale last_tick_at is not worth failing the tick over
		if err := s.ledger.UpdateLastTick(ctx, target.UserID, tickedAt); err != nil {
			log.Warn("failed to record last tick time", zap.Error(err))
		}
		entry = resources.NewSuccessfulTick(target.Username, amount, after, tickedAt)
	}

	if !entry.Success() {
		log.Warn("resource tick failed for user", zap.String("error", entry.ErrorMessage()))
	}

	if err := s.tickLog.Append(ctx, entry); err != nil {
		log.Error("failed to write tick log entry", zap.Error(err), zap.Bool("credited", entry.Success()))
		return false
	}

	log.Debug("user ticked",
		zap.Bool("success", entry.Success()),
		zap.Int("total_wood", entry.TotalWoodAfter()),
		zap.Int("total_food", entry.TotalFoodAfter()))

	return entry.Success()
}
