package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// GetPendingTasksQuery lists pending tasks oldest first; Limit <= 0 means all
type GetPendingTasksQuery struct {
	Limit int
}

// GetPendingTasksResponse carries the tasks
type GetPendingTasksResponse struct {
	Tasks []*construction.Task
}

// GetPendingTasksHandler handles the GetPendingTasks query
type GetPendingTasksHandler struct {
	tasks construction.TaskRepository
}

// NewGetPendingTasksHandler creates a new GetPendingTasksHandler
func NewGetPendingTasksHandler(tasks construction.TaskRepository) *GetPendingTasksHandler {
	return &GetPendingTasksHandler{tasks: tasks}
}

// Handle executes the GetPendingTasks query
func (h *GetPendingTasksHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetPendingTasksQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetPendingTasksQuery")
	}

	tasks, err := h.tasks.FindPending(ctx, query.Limit)
	if err != nil {
		return nil, err
	}

	return &GetPendingTasksResponse{Tasks: tasks}, nil
}
