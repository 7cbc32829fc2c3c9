package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// GetTaskQuery fetches one construction task
type GetTaskQuery struct {
	TaskID string
}

// GetTaskResponse carries the task
type GetTaskResponse struct {
	Task *construction.Task
}

// GetTaskHandler handles the GetTask query
type GetTaskHandler struct {
	tasks construction.TaskRepository
}

// NewGetTaskHandler creates a new GetTaskHandler
func NewGetTaskHandler(tasks construction.TaskRepository) *GetTaskHandler {
	return &GetTaskHandler{tasks: tasks}
}

// Handle executes the GetTask query
func (h *GetTaskHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetTaskQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetTaskQuery")
	}

	task, err := h.tasks.FindByID(ctx, query.TaskID)
	if err != nil {
		return nil, err
	}

	return &GetTaskResponse{Task: task}, nil
}
