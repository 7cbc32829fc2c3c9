package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// DefaultSweepInterval is how often the sweeper looks for overdue tasks whose
// timers were lost
const DefaultSweepInterval = 60 * time.Second

// completionTimeout bounds the database work of one completion
const completionTimeout = 10 * time.Second

// CompletionScheduler finishes in_progress tasks at their persisted due time.
//
// Each task gets a time.AfterFunc timer, so nothing polls while construction
// runs. Timers live in memory only: ScheduleAllPending rebuilds them from the
// database after a restart and the background sweeper completes any overdue
// task a timer missed.
type CompletionScheduler struct {
	tasks         construction.TaskRepository
	clock         shared.Clock
	logger        *zap.Logger
	sweepInterval time.Duration

	timers map[string]*pendingCompletion // key: task ID
	mu     sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// pendingCompletion identifies one arming of a task's timer, so a timer
// that fires late cannot remove the entry of a newer arming
type pendingCompletion struct {
	timer *time.Timer
}

// NewCompletionScheduler creates a scheduler.
// If clock is nil, uses RealClock (production behavior).
func NewCompletionScheduler(tasks construction.TaskRepository, clock shared.Clock, logger *zap.Logger, sweepInterval time.Duration) *CompletionScheduler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &CompletionScheduler{
		tasks:         tasks,
		clock:         clock,
		logger:        logger.Named("completion"),
		sweepInterval: sweepInterval,
		timers:        make(map[string]*pendingCompletion),
		stopCh:        make(chan struct{}),
	}
}

// Schedule arms a timer that completes task at its due time.
// A task already past due completes immediately; a task that is not
// in_progress is ignored.
func (s *CompletionScheduler) Schedule(task *construction.Task) {
	if task.Status() != construction.TaskStatusInProgress || task.DueAt() == nil {
		return
	}

	delay := task.DueAt().Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.arm(task.ID(), delay)
}

func (s *CompletionScheduler) arm(taskID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCh:
		return
	default:
	}

	if existing, ok := s.timers[taskID]; ok {
		existing.timer.Stop()
	}

	entry := &pendingCompletion{}
	entry.timer = time.AfterFunc(delay, func() {
		s.fire(taskID, entry)
	})
	s.timers[taskID] = entry

	s.logger.Debug("completion scheduled",
		zap.String("task_id", taskID),
		zap.Duration("delay", delay))
}

func (s *CompletionScheduler) fire(taskID string, entry *pendingCompletion) {
	s.mu.Lock()
	select {
	case <-s.stopCh:
		// Shutting down; ScheduleAllPending picks the task up on restart
		s.mu.Unlock()
		return
	default:
	}
	if s.timers[taskID] == entry {
		delete(s.timers, taskID)
	}
	// Added under mu so Stop's Wait observes every fire that got past stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	if _, err := s.complete(ctx, taskID); err != nil {
		s.logger.Warn("completion failed, sweeper will retry",
			zap.String("task_id", taskID),
			zap.Error(err))
	}
}

// complete re-reads the task and finishes it if it is due. Reports whether
// this call performed the transition.
func (s *CompletionScheduler) complete(ctx context.Context, taskID string) (bool, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return false, err
	}

	// Only in_progress tasks complete; anything else was finished elsewhere
	if task.Status() != construction.TaskStatusInProgress {
		return false, nil
	}

	now := s.clock.Now()
	if !task.IsOverdue(now) {
		// Timer fired early relative to the clock; wait for the remainder
		s.Schedule(task)
		return false, nil
	}

	if err := task.Complete(now); err != nil {
		return false, err
	}

	if err := s.tasks.SaveTransition(ctx, task, construction.TaskStatusInProgress); err != nil {
		var invalid *construction.ErrInvalidTaskTransition
		if errors.As(err, &invalid) {
			// Another completer won
			return false, nil
		}
		return false, err
	}

	metrics.RecordTaskTransition(construction.TaskStatusInProgress, construction.TaskStatusCompleted)
	s.logger.Info("construction completed",
		zap.String("task_id", task.ID()),
		zap.String("user_id", task.UserID()),
		zap.String("upgrade", task.Name()))

	return true, nil
}

// ScheduleAllPending arms timers for every in_progress task.
// Called on daemon startup; overdue tasks complete immediately.
func (s *CompletionScheduler) ScheduleAllPending(ctx context.Context) (int, error) {
	tasks, err := s.tasks.FindInProgress(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to find in-progress tasks: %w", err)
	}

	for _, task := range tasks {
		s.Schedule(task)
	}

	if len(tasks) > 0 {
		s.logger.Info("recovered in-progress tasks", zap.Int("count", len(tasks)))
	}
	return len(tasks), nil
}

// CompleteOverdue completes every in_progress task whose due time has
// passed and returns how many it finished
func (s *CompletionScheduler) CompleteOverdue(ctx context.Context) (int, error) {
	overdue, err := s.tasks.FindOverdue(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue tasks: %w", err)
	}

	completed := 0
	for _, task := range overdue {
		done, err := s.complete(ctx, task.ID())
		if err != nil {
			s.logger.Warn("sweeper failed to complete task",
				zap.String("task_id", task.ID()),
				zap.Error(err))
			continue
		}
		if done {
			completed++
		}
	}

	return completed, nil
}

// StartSweeper runs CompleteOverdue every sweep interval until Stop
func (s *CompletionScheduler) StartSweeper() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
	s.logger.Info("sweeper started", zap.Duration("interval", s.sweepInterval))
}

func (s *CompletionScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed, err := s.CompleteOverdue(ctx)
	if err != nil {
		s.logger.Warn("sweep failed", zap.Error(err))
		return
	}
	if completed > 0 {
		s.logger.Info("sweeper completed overdue tasks", zap.Int("count", completed))
	}
}

// CancelAll stops every pending timer
func (s *CompletionScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, key)
	}
}

// PendingCount returns the number of armed timers
func (s *CompletionScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop halts the sweeper, cancels all timers and waits for running
// completions. In-progress tasks stay in_progress and are recovered by the
// next ScheduleAllPending.
func (s *CompletionScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stopCh)
		s.mu.Unlock()
	})
	s.CancelAll()
	s.wg.Wait()
}
