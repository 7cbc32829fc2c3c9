package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// TransitionTaskCommand moves a task along one edge of its state machine
type TransitionTaskCommand struct {
	TaskID string
	Status construction.TaskStatus
}

// TransitionTaskResponse carries the task after the change
type TransitionTaskResponse struct {
	Task *construction.Task
}

// TransitionTaskHandler handles the TransitionTask command.
// Moving to cancelled refunds the cost, exactly like CancelTaskCommand.
type TransitionTaskHandler struct {
	tasks construction.TaskRepository
	uow   construction.UnitOfWork
	clock shared.Clock
}

// NewTransitionTaskHandler creates a new TransitionTaskHandler
func NewTransitionTaskHandler(tasks construction.TaskRepository, uow construction.UnitOfWork, clock shared.Clock) *TransitionTaskHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &TransitionTaskHandler{tasks: tasks, uow: uow, clock: clock}
}

// Handle executes the TransitionTask command
func (h *TransitionTaskHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*TransitionTaskCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *TransitionTaskCommand")
	}

	if cmd.Status == construction.TaskStatusCancelled {
		task, _, err := cancelWithRefund(ctx, h.uow, h.clock.Now(), cmd.TaskID)
		if err != nil {
			return nil, err
		}
		metrics.RecordTaskTransition(construction.TaskStatusPending, construction.TaskStatusCancelled)
		return &TransitionTaskResponse{Task: task}, nil
	}

	task, err := h.tasks.FindByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, err
	}

	from := task.Status()
	if err := task.TransitionTo(cmd.Status, h.clock.Now()); err != nil {
		return nil, err
	}
	if err := h.tasks.SaveTransition(ctx, task, from); err != nil {
		return nil, err
	}
	metrics.RecordTaskTransition(from, task.Status())

	return &TransitionTaskResponse{Task: task}, nil
}
