package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// CancelTaskCommand withdraws a pending task and refunds its cost
type CancelTaskCommand struct {
	TaskID string
}

// CancelTaskResponse carries the cancelled task and the refunded balance
type CancelTaskResponse struct {
	Task    *construction.Task
	Balance *resources.Balance
}

// CancelTaskHandler handles the CancelTask command.
// The status change and the refund commit together. The task's queued
// message stays in the queue and is acknowledged as a no-op on delivery.
type CancelTaskHandler struct {
	uow    construction.UnitOfWork
	clock  shared.Clock
	logger *zap.Logger
}

// NewCancelTaskHandler creates a new CancelTaskHandler
func NewCancelTaskHandler(uow construction.UnitOfWork, clock shared.Clock, logger *zap.Logger) *CancelTaskHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CancelTaskHandler{uow: uow, clock: clock, logger: logger}
}

// Handle executes the CancelTask command
func (h *CancelTaskHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*CancelTaskCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *CancelTaskCommand")
	}

	task, balance, err := cancelWithRefund(ctx, h.uow, h.clock.Now(), cmd.TaskID)
	if err != nil {
		return nil, err
	}

	metrics.RecordTaskTransition(construction.TaskStatusPending, construction.TaskStatusCancelled)
	h.logger.Info("upgrade task cancelled",
		zap.String("task_id", task.ID()),
		zap.String("user_id", task.UserID()),
		zap.Int("refunded_wood", task.WoodCost()),
		zap.Int("refunded_food", task.FoodCost()))

	return &CancelTaskResponse{Task: task, Balance: balance}, nil
}

// cancelWithRefund cancels a pending task and credits its cost back in one transaction
func cancelWithRefund(ctx context.Context, uow construction.UnitOfWork, now time.Time, taskID string) (*construction.Task, *resources.Balance, error) {
	var (
		task    *construction.Task
		balance *resources.Balance
	)
	err := uow.Do(ctx, func(ctx context.Context, tx construction.Tx) error {
		t, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return err
		}

		from := t.Status()
		if err := t.Cancel(now); err != nil {
			return err
		}
		if err := tx.Tasks.SaveTransition(ctx, t, from); err != nil {
			return err
		}

		b, err := tx.Ledger.Add(ctx, t.UserID(), t.Cost())
		if err != nil {
			return err
		}

		task, balance = t, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return task, balance, nil
}
