package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// RunTickCommand triggers one resource tick immediately
type RunTickCommand struct{}

// RunTickResponse carries the batch outcome
type RunTickResponse struct {
	Summary *resources.TickSummary
}

// TickRunner runs a single tick
type TickRunner interface {
	RunOnce(ctx context.Context) (*resources.TickSummary, error)
}

// RunTickHandler handles the RunTick command
type RunTickHandler struct {
	runner TickRunner
}

// NewRunTickHandler creates a new RunTickHandler
func NewRunTickHandler(runner TickRunner) *RunTickHandler {
	return &RunTickHandler{runner: runner}
}

// Handle executes the RunTick command
func (h *RunTickHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	if _, ok := request.(*RunTickCommand); !ok {
		return nil, fmt.Errorf("invalid request type: expected *RunTickCommand")
	}

	summary, err := h.runner.RunOnce(ctx)
	if err != nil {
		return nil, err
	}

	return &RunTickResponse{Summary: summary}, nil
}
