package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// Delivery outcomes reported to logs and metrics
const (
	OutcomeStarted    = "started"
	OutcomeInProgress = "in_progress"
	OutcomeCompleted  = "completed"
	OutcomeCancelled  = "cancelled"
	OutcomeMissing    = "missing"
	OutcomeReleased   = "released"
	OutcomeUnknownJob = "unknown_job"
)

// maxStartRaces bounds how often a construct delivery re-reads a task that
// changed underneath it
const maxStartRaces = 3

// QueueWorkerConfig controls the worker pool
type QueueWorkerConfig struct {
	QueueName         string
	Workers           int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	PollRate          float64
	PollBurst         int
	RetryDelay        time.Duration
}

// DefaultQueueWorkerConfig returns four workers on the upgrades queue
func DefaultQueueWorkerConfig() QueueWorkerConfig {
	return QueueWorkerConfig{
		QueueName:         queue.UpgradesQueue,
		Workers:           4,
		VisibilityTimeout: 30 * time.Second,
		PollInterval:      time.Second,
		PollRate:          20,
		PollBurst:         5,
		RetryDelay:        5 * time.Second,
	}
}

// CompletionScheduling arms the completion timer of an in_progress task
type CompletionScheduling interface {
	Schedule(task *construction.Task)
}

// JobHandler processes one leased message and reports its outcome.
// Returning an error releases the message for redelivery.
type JobHandler func(ctx context.Context, msg *queue.Message) (string, error)

// ConstructResult describes what a construct delivery did
type ConstructResult struct {
	TaskID  string
	Status  construction.TaskStatus
	Outcome string
}

// QueueWorker is a pool of goroutines that lease messages and dispatch them
// by job name.
//
// Delivery is at least once: a message is acked only after its outcome is
// durable, so a crash in between redelivers it. Every job handler therefore
// has to be idempotent.
type QueueWorker struct {
	taskQueue queue.TaskQueue
	tasks     construction.TaskRepository
	scheduler CompletionScheduling
	clock     shared.Clock
	logger    *zap.Logger
	cfg       QueueWorkerConfig
	limiter   *rate.Limiter
	handlers  map[string]JobHandler

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewQueueWorker creates a worker pool with the construct job registered
func NewQueueWorker(
	taskQueue queue.TaskQueue,
	tasks construction.TaskRepository,
	scheduler CompletionScheduling,
	clock shared.Clock,
	logger *zap.Logger,
	cfg QueueWorkerConfig,
) *QueueWorker {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaults := DefaultQueueWorkerConfig()
	if cfg.QueueName == "" {
		cfg.QueueName = defaults.QueueName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = defaults.VisibilityTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.PollRate <= 0 {
		cfg.PollRate = defaults.PollRate
	}
	if cfg.PollBurst <= 0 {
		cfg.PollBurst = defaults.PollBurst
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}

	w := &QueueWorker{
		taskQueue: taskQueue,
		tasks:     tasks,
		scheduler: scheduler,
		clock:     clock,
		logger:    logger.Named("worker"),
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.PollRate), cfg.PollBurst),
		handlers:  make(map[string]JobHandler),
	}
	w.Register(queue.JobConstruct, func(ctx context.Context, msg *queue.Message) (string, error) {
		result, err := w.HandleConstruct(ctx, msg)
		if err != nil {
			return "", err
		}
		return result.Outcome, nil
	})
	return w
}

// Register installs the handler for job, replacing any previous one.
// Must be called before Start.
func (w *QueueWorker) Register(job string, handler JobHandler) {
	w.handlers[job] = handler
}

// Start launches the worker goroutines. They run until ctx is cancelled or
// Stop is called.
func (w *QueueWorker) Start(ctx context.Context) {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.loop(runCtx, i)
	}

	w.logger.Info("worker pool started",
		zap.String("queue", w.cfg.QueueName),
		zap.Int("workers", w.cfg.Workers))
}

// Stop cancels the workers and waits for in-flight messages to finish
func (w *QueueWorker) Stop() {
	w.lifecycleMu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	w.logger.Info("worker pool stopped")
}

func (w *QueueWorker) loop(ctx context.Context, id int) {
	defer w.wg.Done()

	logger := w.logger.With(zap.Int("worker", id))
	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}

		processed, err := w.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Warn("poll failed", zap.Error(err))
		}
		if processed {
			continue
		}

		// Idle or failing: back off before polling again
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// ProcessNext leases and processes at most one message. Reports whether a
// message was handled.
func (w *QueueWorker) ProcessNext(ctx context.Context) (bool, error) {
	msg, err := w.taskQueue.Receive(ctx, w.cfg.QueueName, w.cfg.VisibilityTimeout)
	if err != nil {
		return false, fmt.Errorf("failed to receive from %s: %w", w.cfg.QueueName, err)
	}
	if msg == nil {
		return false, nil
	}

	w.process(ctx, msg)
	return true, nil
}

func (w *QueueWorker) process(ctx context.Context, msg *queue.Message) {
	started := time.Now()
	logger := w.logger.With(
		zap.String("message_id", msg.ID),
		zap.String("job", msg.Job),
		zap.String("task_id", msg.TaskID),
		zap.Int("attempt", msg.Attempts))

	handler, ok := w.handlers[msg.Job]
	if !ok {
		logger.Error("no handler for job")
		w.release(ctx, logger, msg, fmt.Errorf("no handler registered for job %q", msg.Job))
		metrics.RecordDelivery(msg.Job, OutcomeUnknownJob, time.Since(started))
		return
	}

	outcome, err := handler(ctx, msg)
	if err != nil {
		failure := &queue.ErrDeliveryFailure{MessageID: msg.ID, Attempts: msg.Attempts, Err: err}
		logger.Warn("delivery failed", zap.Error(failure))
		w.release(ctx, logger, msg, failure)
		metrics.RecordDelivery(msg.Job, OutcomeReleased, time.Since(started))
		return
	}

	if err := w.taskQueue.Ack(ctx, msg); err != nil {
		var lost *queue.ErrLeaseLost
		if errors.As(err, &lost) {
			// Redelivery is harmless because the handler is idempotent
			logger.Warn("lease expired before ack", zap.Error(err))
		} else {
			logger.Error("ack failed", zap.Error(err))
		}
	}

	metrics.RecordDelivery(msg.Job, outcome, time.Since(started))
	logger.Info("delivery processed", zap.String("outcome", outcome))
}

func (w *QueueWorker) release(ctx context.Context, logger *zap.Logger, msg *queue.Message, cause error) {
	if err := w.taskQueue.Release(ctx, msg, cause, w.cfg.RetryDelay); err != nil {
		logger.Warn("release failed, lease will expire", zap.Error(err))
	}
}

// HandleConstruct advances the task named by a construct message.
//
// pending tasks start and get a completion timer; in_progress tasks get
// their timer re-armed from the persisted due time; terminal and missing
// tasks are left alone so the message is acked.
func (w *QueueWorker) HandleConstruct(ctx context.Context, msg *queue.Message) (*ConstructResult, error) {
	payload, err := msg.DecodeConstructPayload()
	if err != nil {
		return nil, err
	}

	for race := 0; race < maxStartRaces; race++ {
		task, err := w.tasks.FindByID(ctx, payload.TaskID)
		if err != nil {
			if shared.IsNotFound(err) {
				w.logger.Warn("construct message for missing task", zap.String("task_id", payload.TaskID))
				return &ConstructResult{TaskID: payload.TaskID, Outcome: OutcomeMissing}, nil
			}
			return nil, err
		}

		switch task.Status() {
		case construction.TaskStatusPending:
			if err := task.Start(w.clock.Now()); err != nil {
				return nil, err
			}
			if err := w.tasks.SaveTransition(ctx, task, construction.TaskStatusPending); err != nil {
				var invalid *construction.ErrInvalidTaskTransition
				if errors.As(err, &invalid) {
					// Cancelled or started concurrently; look again
					continue
				}
				return nil, err
			}
			metrics.RecordTaskTransition(construction.TaskStatusPending, construction.TaskStatusInProgress)
			w.schedule(task)
			return &ConstructResult{TaskID: task.ID(), Status: task.Status(), Outcome: OutcomeStarted}, nil

		case construction.TaskStatusInProgress:
			w.schedule(task)
			return &ConstructResult{TaskID: task.ID(), Status: task.Status(), Outcome: OutcomeInProgress}, nil

		case construction.TaskStatusCompleted:
			return &ConstructResult{TaskID: task.ID(), Status: task.Status(), Outcome: OutcomeCompleted}, nil

		case construction.TaskStatusCancelled:
			return &ConstructResult{TaskID: task.ID(), Status: task.Status(), Outcome: OutcomeCancelled}, nil

		default:
			return nil, fmt.Errorf("task %s has unknown status %q", task.ID(), task.Status())
		}
	}

	return nil, fmt.Errorf("task %s kept changing while starting it", payload.TaskID)
}

func (w *QueueWorker) schedule(task *construction.Task) {
	if w.scheduler != nil {
		w.scheduler.Schedule(task)
	}
}
