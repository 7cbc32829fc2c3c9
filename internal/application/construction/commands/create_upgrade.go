package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// CreateUpgradeCommand spends a user's resources on a new construction task.
// DurationSeconds 0 means the default of 60 seconds.
type CreateUpgradeCommand struct {
	UserID          string
	UpgradeType     string
	UpgradeName     string
	WoodCost        int
	FoodCost        int
	DurationSeconds int
}

// CreateUpgradeResponse carries the pending task and the balance left after payment
type CreateUpgradeResponse struct {
	Task    *construction.Task
	Balance *resources.Balance
}

// CreateUpgradeHandler handles the CreateUpgrade command.
//
// The deduction, the task insert and the completion message are written in
// one transaction, so a failure in any step leaves the balance untouched and
// no orphan task or message behind.
type CreateUpgradeHandler struct {
	uow    construction.UnitOfWork
	clock  shared.Clock
	logger *zap.Logger
}

// NewCreateUpgradeHandler creates a new CreateUpgradeHandler
func NewCreateUpgradeHandler(uow construction.UnitOfWork, clock shared.Clock, logger *zap.Logger) *CreateUpgradeHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreateUpgradeHandler{
		uow:    uow,
		clock:  clock,
		logger: logger,
	}
}

// Handle executes the CreateUpgrade command
func (h *CreateUpgradeHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*CreateUpgradeCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *CreateUpgradeCommand")
	}

	upgradeType, err := construction.ParseUpgradeType(cmd.UpgradeType)
	if err != nil {
		metrics.RecordTaskRejected("validation")
		return nil, err
	}

	now := h.clock.Now()
	task, err := construction.NewTask(cmd.UserID, construction.UpgradeSpec{
		Type:            upgradeType,
		Name:            cmd.UpgradeName,
		Cost:            resources.Cost{Wood: cmd.WoodCost, Food: cmd.FoodCost},
		DurationSeconds: cmd.DurationSeconds,
	}, now)
	if err != nil {
		metrics.RecordTaskRejected("validation")
		return nil, err
	}

	msg, err := queue.NewConstructMessage(task.ID(), task.DurationSeconds(), now)
	if err != nil {
		return nil, err
	}

	var balance *resources.Balance
	err = h.uow.Do(ctx, func(ctx context.Context, tx construction.Tx) error {
		b, err := tx.Ledger.Deduct(ctx, cmd.UserID, task.Cost())
		if err != nil {
			return err
		}
		balance = b

		if err := tx.Tasks.Create(ctx, task); err != nil {
			return err
		}
		return tx.Queue.Enqueue(ctx, msg)
	})
	if err != nil {
		metrics.RecordTaskRejected(rejectionReason(err))
		h.logger.Info("upgrade rejected",
			zap.String("user_id", cmd.UserID),
			zap.String("upgrade_name", cmd.UpgradeName),
			zap.Error(err))
		return nil, err
	}

	metrics.RecordTaskCreated(task.UpgradeType())
	h.logger.Info("upgrade task created",
		zap.String("task_id", task.ID()),
		zap.String("user_id", task.UserID()),
		zap.String("upgrade_type", string(task.UpgradeType())),
		zap.String("upgrade_name", task.Name()),
		zap.Int("wood_cost", task.WoodCost()),
		zap.Int("food_cost", task.FoodCost()),
		zap.Int("remaining_wood", balance.Wood()),
		zap.Int("remaining_food", balance.Food()))

	return &CreateUpgradeResponse{Task: task, Balance: balance}, nil
}

func rejectionReason(err error) string {
	var insufficient *resources.ErrInsufficientResources
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_resources"
	case shared.IsNotFound(err):
		return "not_found"
	case shared.IsValidationError(err):
		return "validation"
	default:
		return "error"
	}
}
