package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// GetUserTasksQuery lists a user's tasks newest first; Limit <= 0 means all
type GetUserTasksQuery struct {
	UserID string
	Limit  int
}

// GetUserTasksResponse carries the tasks
type GetUserTasksResponse struct {
	Tasks []*construction.Task
}

// GetUserTasksHandler handles the GetUserTasks query
type GetUserTasksHandler struct {
	tasks construction.TaskRepository
}

// NewGetUserTasksHandler creates a new GetUserTasksHandler
func NewGetUserTasksHandler(tasks construction.TaskRepository) *GetUserTasksHandler {
	return &GetUserTasksHandler{tasks: tasks}
}

// Handle executes the GetUserTasks query
func (h *GetUserTasksHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetUserTasksQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetUserTasksQuery")
	}

	tasks, err := h.tasks.FindByUser(ctx, query.UserID, query.Limit)
	if err != nil {
		return nil, err
	}

	return &GetUserTasksResponse{Tasks: tasks}, nil
}
